package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/rules/checkers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = entity.Address("alice")
	bob   = entity.Address("bob")
)

// chain is an in-memory entry source plus the local log of one node.
type chain struct {
	engine  *Engine
	address entity.Address
	game    entity.Game
	tip     entity.Address
	entries map[entity.Address]entity.Entry
	links   map[entity.Address][]entity.Address
	records []entity.Record
}

func newChain(t *testing.T) *chain {
	t.Helper()

	gameEntry, err := entity.NewEntry(entity.EntryTypeGame, entity.Game{Player1: alice, Player2: bob, CreatedAt: 1})
	require.NoError(t, err)

	address := gameEntry.MustAddress()

	return &chain{
		engine:  New(checkers.New()),
		address: address,
		game:    entity.Game{Player1: alice, Player2: bob, CreatedAt: 1},
		tip:     address,
		entries: map[entity.Address]entity.Entry{address: gameEntry},
		links:   map[entity.Address][]entity.Address{},
		records: []entity.Record{{Seq: 1, Address: address, Entry: gameEntry, Provenance: alice}},
	}
}

func (that *chain) GetEntry(_ context.Context, address entity.Address) (entity.Entry, error) {
	entry, ok := that.entries[address]
	if !ok {
		return entity.Entry{}, fmt.Errorf("%w: %s", apperror.ErrNotFound, address)
	}

	return entry, nil
}

func (that *chain) GetLinks(_ context.Context, base entity.Address, _ entity.LinkTag) ([]entity.Address, error) {
	return that.links[base], nil
}

// candidate - builds a move on top of the current tip without storing it.
func (that *chain) candidate(t *testing.T, author entity.Address, moveType string) (entity.Address, entity.Entry, entity.Move) {
	t.Helper()

	move := entity.Move{
		Game:         that.address,
		Author:       author,
		MoveType:     json.RawMessage(moveType),
		PreviousMove: that.tip,
		Timestamp:    uint32(len(that.records)),
	}

	entry, err := entity.NewEntry(entity.EntryTypeMove, move)
	require.NoError(t, err)

	return entry.MustAddress(), entry, move
}

// commit - validates the move against the log and stores it.
func (that *chain) commit(t *testing.T, author entity.Address, moveType string) entity.Address {
	t.Helper()

	address, entry, move := that.candidate(t, author, moveType)
	require.NoError(t, that.engine.CheckMove(that.address, that.game, that.records, address, move))

	that.store(address, entry, move)

	return address
}

func (that *chain) store(address entity.Address, entry entity.Entry, move entity.Move) {
	that.entries[address] = entry
	that.links[move.PreviousMove] = append(that.links[move.PreviousMove], address)
	that.records = append(that.records, entity.Record{
		Seq:        int64(len(that.records) + 1),
		Address:    address,
		Entry:      entry,
		Provenance: move.Author,
	})
	that.tip = address
}

func step(fromX, fromY, toX, toY int) string {
	return fmt.Sprintf(`{"MovePiece":{"from":{"x":%d,"y":%d},"to":{"x":%d,"y":%d}}}`, fromX, fromY, toX, toY)
}

func TestEngine_Scenarios(t *testing.T) {
	t.Run("Opening move by player 2 is accepted", func(t *testing.T) {
		// Given: a new game
		c := newChain(t)

		// When: player 2 moves (1,5) to (0,4)
		c.commit(t, bob, step(1, 5, 0, 4))

		// Then: the state shows the piece moved and nothing captured
		state, moves, err := c.engine.StateFromLinks(context.Background(), c, c.address, c.game)
		require.NoError(t, err)
		require.Len(t, moves, 1)
		assert.Contains(t, state.Player2.Pieces, entity.Piece{X: 0, Y: 4})
		assert.NotContains(t, state.Player2.Pieces, entity.Piece{X: 1, Y: 5})
		assert.Len(t, state.Player1.Pieces, 12)
		assert.Len(t, state.Player2.Pieces, 12)
	})

	t.Run("Player 1 cannot open", func(t *testing.T) {
		// Given: a new game
		c := newChain(t)

		// When: player 1 tries the first move
		address, _, move := c.candidate(t, alice, step(0, 2, 1, 3))
		err := c.engine.CheckMove(c.address, c.game, c.records, address, move)

		// Then: the move is rejected with the first move reason
		require.ErrorIs(t, err, apperror.ErrFirstMove)
		assert.Contains(t, apperror.Reason(err), "must make the first move")
	})

	t.Run("Jump over an empty square", func(t *testing.T) {
		c := newChain(t)

		address, _, move := c.candidate(t, bob, step(1, 5, 3, 3))
		err := c.engine.CheckMove(c.address, c.game, c.records, address, move)

		require.ErrorIs(t, err, apperror.ErrJumpOverEmpty)
		assert.Equal(t, "can only jump over another piece", apperror.Reason(err))
	})

	t.Run("Jump over own piece", func(t *testing.T) {
		c := newChain(t)

		// Given: (1,5) is vacated so (3,7) can land there over its own (2,6)
		c.commit(t, bob, step(1, 5, 0, 4))
		c.commit(t, alice, step(0, 2, 1, 3))

		// When: player 2 jumps over its own piece
		address, _, move := c.candidate(t, bob, step(3, 7, 1, 5))
		err := c.engine.CheckMove(c.address, c.game, c.records, address, move)

		// Then: the jump is rejected
		require.ErrorIs(t, err, apperror.ErrJumpOwnPiece)
		assert.Equal(t, "cannot jump own piece", apperror.Reason(err))
	})

	t.Run("No moves after a resignation", func(t *testing.T) {
		// Given: player 1 resigned
		c := newChain(t)
		c.commit(t, bob, step(1, 5, 0, 4))
		c.commit(t, alice, `"Resign"`)

		for _, author := range []entity.Address{alice, bob} {
			// When: either player moves
			address, _, move := c.candidate(t, author, `"Resign"`)
			err := c.engine.CheckMove(c.address, c.game, c.records, address, move)

			// Then: the game has ended
			require.ErrorIs(t, err, apperror.ErrGameFinished)
			assert.Contains(t, apperror.Reason(err), "game has already ended")
		}
	})

	t.Run("A log already holding the candidate gives the same verdict", func(t *testing.T) {
		// Given: a chain with three moves
		c := newChain(t)
		c.commit(t, bob, step(1, 5, 0, 4))
		c.commit(t, alice, step(0, 2, 1, 3))

		address, entry, move := c.candidate(t, bob, step(3, 5, 2, 4))
		without := c.engine.CheckMove(c.address, c.game, c.records, address, move)
		require.NoError(t, without)

		// When: the candidate is already in the log, delivered out of order
		withCandidate := append([]entity.Record{{Address: address, Entry: entry, Provenance: bob}}, c.records...)
		withDuplicate := append(append([]entity.Record{}, withCandidate...), withCandidate[0])

		// Then: the verdict does not change
		require.NoError(t, c.engine.CheckMove(c.address, c.game, withCandidate, address, move))
		require.NoError(t, c.engine.CheckMove(c.address, c.game, withDuplicate, address, move))
	})
}

func TestEngine_TurnOrder(t *testing.T) {
	// Given: player 2 made the first move
	c := newChain(t)
	c.commit(t, bob, step(1, 5, 0, 4))

	// When: player 2 moves again
	address, _, move := c.candidate(t, bob, step(3, 5, 2, 4))
	err := c.engine.CheckMove(c.address, c.game, c.records, address, move)

	// Then: it is not their turn
	require.ErrorIs(t, err, apperror.ErrNotYourTurn)
}

func TestEngine_Identity(t *testing.T) {
	c := newChain(t)

	t.Run("Stranger", func(t *testing.T) {
		address, _, move := c.candidate(t, "mallory", `"Resign"`)
		err := c.engine.CheckMove(c.address, c.game, c.records, address, move)
		require.ErrorIs(t, err, apperror.ErrPlayerNotInGame)
	})

	t.Run("Stranger on a finished game", func(t *testing.T) {
		// Given: a game player 1 resigned
		finished := newChain(t)
		finished.commit(t, bob, step(1, 5, 0, 4))
		finished.commit(t, alice, `"Resign"`)

		// When: someone outside the game moves
		address, _, move := finished.candidate(t, "mallory", `"Resign"`)
		err := finished.engine.CheckMove(finished.address, finished.game, finished.records, address, move)

		// Then: the author is rejected before the game state is looked at
		require.ErrorIs(t, err, apperror.ErrPlayerNotInGame)
	})

	t.Run("Self play", func(t *testing.T) {
		game := entity.Game{Player1: alice, Player2: alice}
		err := c.engine.Validate(game, c.engine.Ruleset().Initial(), entity.Move{Author: alice, MoveType: json.RawMessage(`"Resign"`)})
		require.ErrorIs(t, err, apperror.ErrSelfPlay)
	})
}

func TestEngine_StaleTip(t *testing.T) {
	// Given: a move built on the game root
	c := newChain(t)
	address, _, move := c.candidate(t, bob, step(1, 5, 0, 4))

	// When: another move lands first
	c.commit(t, bob, step(3, 5, 2, 4))
	err := c.engine.CheckMove(c.address, c.game, c.records, address, move)

	// Then: the stale move no longer extends the tip
	require.ErrorIs(t, err, apperror.ErrNotChainTip)
}

func TestEngine_Properties(t *testing.T) {
	// Given: a random but legal game played through the validator
	c := newChain(t)
	rnd := rand.New(rand.NewSource(7))
	ruleset := c.engine.Ruleset()
	players := map[entity.Address]entity.Player{alice: entity.Player1, bob: entity.Player2}

	author := bob
	for i := 0; i < 20; i++ {
		state, _, err := c.engine.StateFromLinks(context.Background(), c, c.address, c.game)
		require.NoError(t, err)

		pieces := state.Player(players[author]).Pieces
		var played bool
		for _, idx := range rnd.Perm(len(pieces)) {
			from := pieces[idx]
			for _, d := range []entity.Piece{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: 2, Y: 2}, {X: -2, Y: 2}} {
				dy := d.Y
				if players[author] == entity.Player2 {
					dy = -dy
				}
				to := entity.Piece{X: from.X + d.X, Y: from.Y + dy}
				raw := step(from.X, from.Y, to.X, to.Y)

				moveType, err := ruleset.ParseMove(json.RawMessage(raw))
				require.NoError(t, err)
				if ruleset.Validate(moveType, players[author], state) != nil {
					continue
				}

				c.commit(t, author, raw)
				played = true
				break
			}
			if played {
				break
			}
		}
		if !played {
			break
		}

		if author == bob {
			author = alice
		} else {
			author = bob
		}
	}

	first, chainByLinks, err := c.engine.StateFromLinks(context.Background(), c, c.address, c.game)
	require.NoError(t, err)

	t.Run("Reduce is deterministic", func(t *testing.T) {
		second, err := c.engine.Reduce(c.game, Moves(chainByLinks))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Consecutive moves never share an author", func(t *testing.T) {
		for i := 1; i < len(first.Moves); i++ {
			assert.NotEqual(t, first.Moves[i-1].Author, first.Moves[i].Author)
		}
	})

	t.Run("Log order does not matter", func(t *testing.T) {
		shuffled := append([]entity.Record{}, c.records...)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		chainByLog, err := ResolveLog(c.address, shuffled, "")
		require.NoError(t, err)
		assert.Equal(t, chainByLinks, chainByLog)
	})
}

func TestResolveLinks_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty chain", func(t *testing.T) {
		c := newChain(t)

		moves, err := ResolveLinks(ctx, c, c.address)
		require.NoError(t, err)
		assert.Empty(t, moves)
		assert.Equal(t, c.address, Tip(c.address, moves))
	})

	t.Run("Fork", func(t *testing.T) {
		c := newChain(t)
		first, firstEntry, firstMove := c.candidate(t, bob, step(1, 5, 0, 4))
		second, secondEntry, secondMove := c.candidate(t, bob, step(3, 5, 2, 4))
		c.store(first, firstEntry, firstMove)
		c.store(second, secondEntry, secondMove)

		_, err := ResolveLinks(ctx, c, c.address)
		require.ErrorIs(t, err, apperror.ErrChainForked)

		_, err = ResolveLog(c.address, c.records, "")
		require.ErrorIs(t, err, apperror.ErrChainForked)
	})

	t.Run("Cycle", func(t *testing.T) {
		c := newChain(t)
		first := c.commit(t, bob, step(1, 5, 0, 4))
		c.links[first] = []entity.Address{first}

		_, err := ResolveLinks(ctx, c, c.address)
		require.ErrorIs(t, err, apperror.ErrChainCycle)
	})

	t.Run("Missing entry", func(t *testing.T) {
		c := newChain(t)
		first := c.commit(t, bob, step(1, 5, 0, 4))
		delete(c.entries, first)

		_, err := ResolveLinks(ctx, c, c.address)
		require.ErrorIs(t, err, apperror.ErrChainMissingEntry)
	})

	t.Run("Link to a non move entry", func(t *testing.T) {
		c := newChain(t)
		c.links[c.address] = []entity.Address{c.address}

		_, err := ResolveLinks(ctx, c, c.address)
		require.ErrorIs(t, err, apperror.ErrChainCycle)

		anchor := entity.AnchorEntry(entity.ProposalsAnchor)
		c.entries[anchor.MustAddress()] = anchor
		c.links[c.address] = []entity.Address{anchor.MustAddress()}

		_, err = ResolveLinks(ctx, c, c.address)
		require.ErrorIs(t, err, apperror.ErrChainMalformed)
	})
}

func TestResolveLog_Malformed(t *testing.T) {
	t.Run("Orphaned move", func(t *testing.T) {
		// Given: a move whose predecessor is missing from the log
		c := newChain(t)
		c.commit(t, bob, step(1, 5, 0, 4))
		c.commit(t, alice, step(0, 2, 1, 3))
		orphaned := append([]entity.Record{c.records[0]}, c.records[2])

		// When: ordering the log
		_, err := ResolveLog(c.address, orphaned, "")

		// Then: the gap is reported rather than skipped
		require.ErrorIs(t, err, apperror.ErrChainMalformed)
	})

	t.Run("Moves of other games are ignored", func(t *testing.T) {
		c := newChain(t)
		c.commit(t, bob, step(1, 5, 0, 4))

		other := newChain(t)
		other.game.CreatedAt = 2
		otherEntry, err := entity.NewEntry(entity.EntryTypeGame, other.game)
		require.NoError(t, err)
		other.address = otherEntry.MustAddress()
		other.tip = other.address
		other.commit(t, bob, step(1, 5, 0, 4))

		moves, err := ResolveLog(c.address, append(c.records, other.records...), "")
		require.NoError(t, err)
		require.Len(t, moves, 1)
		assert.Equal(t, c.tip, moves[0].Address)
	})
}
