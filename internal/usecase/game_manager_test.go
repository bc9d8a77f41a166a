package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/engine"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/render"
	"github.com/rocketscienceinc/movechain/internal/repository"
	"github.com/rocketscienceinc/movechain/internal/rules/checkers"
)

type node struct {
	conductor *Conductor
	manager   *GameManager
}

func newNode(t *testing.T, name string) *node {
	t.Helper()

	return newNodeWithRepo(t, name, repository.NewMemoryRepository())
}

func newNodeWithRepo(t *testing.T, name string, repo repository.EntryRepository) *node {
	t.Helper()

	logger := zaptest.NewLogger(t)
	gameEngine := engine.New(checkers.New())
	conductor := NewConductor(logger, repo, gameEngine)

	agent, err := conductor.Bootstrap(context.Background(), entity.Agent{Name: name, Key: name + "-key"})
	require.NoError(t, err)

	return &node{
		conductor: conductor,
		manager:   NewGameManager(logger, agent, conductor, repo, gameEngine, render.NewSVGBoardRenderer()),
	}
}

type peerPublisher struct {
	peers []*node
}

func (that *peerPublisher) Publish(ctx context.Context, record entity.Record) error {
	for _, peer := range that.peers {
		if _, err := peer.conductor.Ingest(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// connect - every commit on one node is delivered to the other.
func connect(a, b *node) {
	a.conductor.SetPublisher(&peerPublisher{peers: []*node{b}})
	b.conductor.SetPublisher(&peerPublisher{peers: []*node{a}})
}

type mockPublisher struct {
	mock.Mock
}

func (that *mockPublisher) Publish(ctx context.Context, record entity.Record) error {
	args := that.Called(ctx, record)
	return args.Error(0)
}

func step(from, to entity.Piece) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{"MovePiece": map[string]any{"from": from, "to": to}})
	return raw
}

// newMatch - alice proposes, bob accepts. Bob is player 1 and alice opens.
func newMatch(t *testing.T) (context.Context, *node, *node, entity.Address) {
	t.Helper()

	ctx := context.Background()
	alice := newNode(t, "alice")
	bob := newNode(t, "bob")
	connect(alice, bob)

	proposal, err := alice.manager.CreateProposal(ctx, "anyone for checkers?")
	require.NoError(t, err)

	game, err := bob.manager.AcceptProposal(ctx, proposal, 100)
	require.NoError(t, err)

	return ctx, alice, bob, game
}

func TestGameManager_Matchmaking(t *testing.T) {
	ctx := context.Background()
	alice := newNode(t, "alice")
	bob := newNode(t, "bob")
	connect(alice, bob)

	// Given: alice advertises a game
	proposal, err := alice.manager.CreateProposal(ctx, "anyone for checkers?")
	require.NoError(t, err)

	// When: bob lists the proposals
	proposals, err := bob.manager.GetProposals(ctx)
	require.NoError(t, err)

	// Then: bob sees alice's proposal
	require.Len(t, proposals, 1)
	assert.Equal(t, proposal, proposals[0].Address)
	assert.Equal(t, alice.manager.WhoAmI(), proposals[0].Entry.Agent)
	assert.Equal(t, "anyone for checkers?", proposals[0].Entry.Message)

	// When: bob accepts it
	game, err := bob.manager.AcceptProposal(ctx, proposal, 100)
	require.NoError(t, err)

	// Then: alice finds the game, with bob as player 1 and alice as player 2
	responses, err := alice.manager.CheckResponses(ctx, proposal)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, game, responses[0].Address)
	assert.Equal(t, entity.Game{Player1: bob.manager.WhoAmI(), Player2: alice.manager.WhoAmI(), CreatedAt: 100}, responses[0].Entry)
}

func TestGameManager_RemoveProposal(t *testing.T) {
	ctx := context.Background()
	alice := newNode(t, "alice")
	bob := newNode(t, "bob")
	connect(alice, bob)

	proposal, err := alice.manager.CreateProposal(ctx, "quick game")
	require.NoError(t, err)

	t.Run("Only the author can remove a proposal", func(t *testing.T) {
		_, err := bob.manager.RemoveProposal(ctx, proposal)
		require.ErrorIs(t, err, apperror.ErrProposalRemoveOwner)
	})

	t.Run("Removed proposals disappear everywhere", func(t *testing.T) {
		// When: alice removes the proposal
		deletion, err := alice.manager.RemoveProposal(ctx, proposal)
		require.NoError(t, err)
		assert.NotEqual(t, proposal, deletion)

		// Then: neither node lists it
		for _, n := range []*node{alice, bob} {
			proposals, err := n.manager.GetProposals(ctx)
			require.NoError(t, err)
			assert.Empty(t, proposals)
		}

		// And: it can no longer be accepted
		_, err = bob.manager.AcceptProposal(ctx, proposal, 1)
		require.ErrorIs(t, err, apperror.ErrProposalRemoved)
	})
}

func TestGameManager_Play(t *testing.T) {
	ctx, alice, bob, game := newMatch(t)

	t.Run("The acceptor cannot open", func(t *testing.T) {
		_, err := bob.manager.MakeMove(ctx, game, step(entity.Piece{X: 0, Y: 2}, entity.Piece{X: 1, Y: 3}), 1)
		require.ErrorIs(t, err, apperror.ErrFirstMove)
		assert.Equal(t, "player 2 must make the first move", apperror.Reason(err))
	})

	t.Run("Moves alternate and both nodes agree", func(t *testing.T) {
		// When: alice opens and bob replies
		_, err := alice.manager.MakeMove(ctx, game, step(entity.Piece{X: 1, Y: 5}, entity.Piece{X: 0, Y: 4}), 2)
		require.NoError(t, err)

		_, err = alice.manager.MakeMove(ctx, game, step(entity.Piece{X: 3, Y: 5}, entity.Piece{X: 2, Y: 4}), 3)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		_, err = bob.manager.MakeMove(ctx, game, step(entity.Piece{X: 0, Y: 2}, entity.Piece{X: 1, Y: 3}), 4)
		require.NoError(t, err)

		// Then: both nodes derive the same state
		aliceState, err := alice.manager.GetState(ctx, game)
		require.NoError(t, err)
		bobState, err := bob.manager.GetState(ctx, game)
		require.NoError(t, err)

		assert.Equal(t, aliceState, bobState)
		require.Len(t, aliceState.Moves, 2)
		assert.Contains(t, aliceState.Player2.Pieces, entity.Piece{X: 0, Y: 4})
		assert.Contains(t, aliceState.Player1.Pieces, entity.Piece{X: 1, Y: 3})
	})

	t.Run("Render is relative to the viewer", func(t *testing.T) {
		forAlice, err := alice.manager.RenderState(ctx, game)
		require.NoError(t, err)
		forBob, err := bob.manager.RenderState(ctx, game)
		require.NoError(t, err)

		assert.Contains(t, forAlice, "It is your turn")
		assert.Contains(t, forBob, "It is your opponents turn")
		assert.Contains(t, forAlice, "  x  0 1 2 3 4 5 6 7\ny\n")
	})

	t.Run("Jump onto an occupied square", func(t *testing.T) {
		// When: alice tries to jump bob's piece at (1,3)
		_, err := alice.manager.MakeMove(ctx, game, step(entity.Piece{X: 0, Y: 4}, entity.Piece{X: 2, Y: 2}), 5)

		// Then: (2,2) still holds one of bob's pieces
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Resignation ends the game", func(t *testing.T) {
		_, err := alice.manager.MakeMove(ctx, game, json.RawMessage(`"Resign"`), 6)
		require.NoError(t, err)

		_, err = bob.manager.MakeMove(ctx, game, step(entity.Piece{X: 2, Y: 2}, entity.Piece{X: 3, Y: 3}), 7)
		require.ErrorIs(t, err, apperror.ErrGameFinished)

		state, err := bob.manager.GetState(ctx, game)
		require.NoError(t, err)
		assert.True(t, state.Player2.Resigned)
		assert.True(t, state.Player1.Winner)

		text, err := bob.manager.RenderState(ctx, game)
		require.NoError(t, err)
		assert.Contains(t, text, "Game over: Player 2 has resigned!\n")
	})

	t.Run("Every stored move re-validates", func(t *testing.T) {
		for _, n := range []*node{alice, bob} {
			checked, err := n.manager.VerifyGame(ctx, game)
			require.NoError(t, err)
			assert.Equal(t, 3, checked)
		}
	})

	t.Run("Image", func(t *testing.T) {
		image, err := alice.manager.RenderImage(ctx, game)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), image[:4])
	})
}

func TestGameManager_GameAndMovesArePermanent(t *testing.T) {
	ctx, alice, _, game := newMatch(t)

	move, err := alice.manager.MakeMove(ctx, game, step(entity.Piece{X: 1, Y: 5}, entity.Piece{X: 0, Y: 4}), 1)
	require.NoError(t, err)

	_, err = alice.conductor.Remove(ctx, alice.manager.WhoAmI(), game)
	require.ErrorIs(t, err, apperror.ErrCannotModifyGame)

	_, err = alice.conductor.Remove(ctx, alice.manager.WhoAmI(), move)
	require.ErrorIs(t, err, apperror.ErrCannotModifyMove)
}

func TestGameManager_UnknownGame(t *testing.T) {
	alice := newNode(t, "alice")

	_, err := alice.manager.GetState(context.Background(), "nope")
	require.ErrorIs(t, err, apperror.ErrGameNotFound)

	_, err = alice.manager.MakeMove(context.Background(), "nope", json.RawMessage(`"Resign"`), 1)
	require.ErrorIs(t, err, apperror.ErrGameNotFound)
}

func TestGameManager_ValidMoves(t *testing.T) {
	alice := newNode(t, "alice")

	moves, err := alice.manager.ValidMoves()
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.JSONEq(t, `{"MovePiece":{"from":{"x":0,"y":0},"to":{"x":1,"y":1}}}`, string(moves[0]))
	assert.JSONEq(t, `"Resign"`, string(moves[1]))
}

func TestGameManager_CreateGame(t *testing.T) {
	ctx := context.Background()
	alice := newNode(t, "alice")
	bob := newNode(t, "bob")
	connect(alice, bob)

	// Given: alice challenges bob directly
	game, err := alice.manager.CreateGame(ctx, bob.manager.WhoAmI(), 42)
	require.NoError(t, err)

	// When: bob opens the game
	_, err = bob.manager.MakeMove(ctx, game, step(entity.Piece{X: 1, Y: 5}, entity.Piece{X: 0, Y: 4}), 43)

	// Then: the non-creator moves first
	require.NoError(t, err)

	t.Run("Self play is rejected", func(t *testing.T) {
		_, err := alice.manager.CreateGame(ctx, alice.manager.WhoAmI(), 1)
		require.ErrorIs(t, err, apperror.ErrSelfPlay)
	})
}

func TestConductor_Ingest(t *testing.T) {
	ctx, alice, bob, game := newMatch(t)

	move, err := entity.NewEntry(entity.EntryTypeMove, entity.Move{
		Game:         game,
		Author:       alice.manager.WhoAmI(),
		MoveType:     step(entity.Piece{X: 1, Y: 5}, entity.Piece{X: 0, Y: 4}),
		PreviousMove: game,
		Timestamp:    1,
	})
	require.NoError(t, err)
	address := move.MustAddress()
	link := entity.Link{Base: game, Target: address, Tag: entity.LinkNextMove}

	t.Run("Claimed address must match the content", func(t *testing.T) {
		_, err := bob.conductor.Ingest(ctx, entity.Record{Address: game, Entry: move, Provenance: alice.manager.WhoAmI()})
		require.ErrorIs(t, err, apperror.ErrAddressMismatch)
	})

	t.Run("Author must be the committing agent", func(t *testing.T) {
		_, err := bob.conductor.Ingest(ctx, entity.Record{Address: address, Entry: move, Provenance: bob.manager.WhoAmI(), Links: []entity.Link{link}})
		require.ErrorIs(t, err, apperror.ErrMoveAuthorMismatch)
	})

	t.Run("A move needs its next_move link", func(t *testing.T) {
		_, err := bob.conductor.Ingest(ctx, entity.Record{Address: address, Entry: move, Provenance: alice.manager.WhoAmI()})
		require.ErrorIs(t, err, apperror.ErrInvalidLink)
	})

	t.Run("Link base must be the previous move", func(t *testing.T) {
		wrong := entity.Link{Base: address, Target: address, Tag: entity.LinkNextMove}
		_, err := bob.conductor.Ingest(ctx, entity.Record{Address: address, Entry: move, Provenance: alice.manager.WhoAmI(), Links: []entity.Link{wrong}})
		require.ErrorIs(t, err, apperror.ErrInvalidLink)
	})

	t.Run("Valid records are stored once", func(t *testing.T) {
		record := entity.Record{Address: address, Entry: move, Provenance: alice.manager.WhoAmI(), Links: []entity.Link{link}}

		stored, err := bob.conductor.Ingest(ctx, record)
		require.NoError(t, err)
		assert.True(t, stored)

		stored, err = bob.conductor.Ingest(ctx, record)
		require.NoError(t, err)
		assert.False(t, stored)

		state, err := bob.manager.GetState(ctx, game)
		require.NoError(t, err)
		assert.Len(t, state.Moves, 1)
	})
}

func TestConductor_CatchUp(t *testing.T) {
	ctx, alice, bob, game := newMatch(t)

	_, err := alice.manager.MakeMove(ctx, game, step(entity.Piece{X: 1, Y: 5}, entity.Piece{X: 0, Y: 4}), 1)
	require.NoError(t, err)
	_, err = bob.manager.MakeMove(ctx, game, step(entity.Piece{X: 0, Y: 2}, entity.Piece{X: 1, Y: 3}), 2)
	require.NoError(t, err)

	// Given: a node that joins late
	carol := newNode(t, "carol")

	// When: it replays alice's log
	records, err := alice.conductor.Log(ctx)
	require.NoError(t, err)

	for _, record := range records {
		_, err = carol.conductor.Ingest(ctx, record)
		require.NoError(t, err)
	}

	// Then: it derives the same state as the players
	expected, err := alice.manager.GetState(ctx, game)
	require.NoError(t, err)
	actual, err := carol.manager.GetState(ctx, game)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestConductor_Publish(t *testing.T) {
	ctx := context.Background()
	alice := newNode(t, "alice")
	bob := newNode(t, "bob")

	publisher := &mockPublisher{}
	alice.conductor.SetPublisher(publisher)
	bob.conductor.SetPublisher(publisher)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(record entity.Record) bool {
		return record.Entry.Type == entity.EntryTypeGame && record.Seq > 0
	})).Return(nil).Once()

	// When: alice creates a game
	game, err := alice.manager.CreateGame(ctx, bob.manager.WhoAmI(), 1)
	require.NoError(t, err)

	// And: bob ingests it directly
	records, err := alice.conductor.Log(ctx)
	require.NoError(t, err)
	_, err = bob.conductor.Ingest(ctx, records[len(records)-1])
	require.NoError(t, err)

	// And: alice commits the same game again
	again, err := alice.manager.CreateGame(ctx, bob.manager.WhoAmI(), 1)
	require.NoError(t, err)

	// Then: only the first local commit was published
	assert.Equal(t, game, again)
	publisher.AssertExpectations(t)
}

var errAppendUnavailable = errors.New("log is unavailable")

// failingAppendRepo - a store whose next appends fail.
type failingAppendRepo struct {
	repository.EntryRepository
	failures int
}

func (that *failingAppendRepo) AppendLog(ctx context.Context, record entity.Record) (int64, error) {
	if that.failures > 0 {
		that.failures--
		return 0, errAppendUnavailable
	}

	return that.EntryRepository.AppendLog(ctx, record)
}

func TestConductor_FailedAppendLeavesNoTrace(t *testing.T) {
	ctx := context.Background()

	store := &failingAppendRepo{EntryRepository: repository.NewMemoryRepository()}
	alice := newNodeWithRepo(t, "alice", store)
	bob := newNode(t, "bob")
	connect(alice, bob)

	proposal, err := alice.manager.CreateProposal(ctx, "checkers?")
	require.NoError(t, err)
	game, err := bob.manager.AcceptProposal(ctx, proposal, 100)
	require.NoError(t, err)

	opening := step(entity.Piece{X: 1, Y: 5}, entity.Piece{X: 0, Y: 4})

	// Given: alice's store fails the next append
	store.failures = 1

	// When: alice opens the game
	_, err = alice.manager.MakeMove(ctx, game, opening, 1)

	// Then: the move is rejected and neither the links nor the log hold it
	require.ErrorIs(t, err, errAppendUnavailable)

	state, err := alice.manager.GetState(ctx, game)
	require.NoError(t, err)
	assert.Empty(t, state.Moves)

	records, err := alice.conductor.Log(ctx)
	require.NoError(t, err)
	for _, record := range records {
		assert.NotEqual(t, entity.EntryTypeMove, record.Entry.Type)
	}

	// When: alice makes the same move again
	_, err = alice.manager.MakeMove(ctx, game, opening, 1)
	require.NoError(t, err)

	// Then: the game continues on both nodes
	_, err = bob.manager.MakeMove(ctx, game, step(entity.Piece{X: 0, Y: 2}, entity.Piece{X: 1, Y: 3}), 2)
	require.NoError(t, err)

	moves, err := alice.manager.VerifyGame(ctx, game)
	require.NoError(t, err)
	assert.Equal(t, 2, moves)

	state, err = alice.manager.GetState(ctx, game)
	require.NoError(t, err)
	assert.Len(t, state.Moves, 2)
}
