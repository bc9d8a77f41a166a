package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

// EntrySource is the read side of an entry store.
type EntrySource interface {
	GetEntry(ctx context.Context, address entity.Address) (entity.Entry, error)
	GetLinks(ctx context.Context, base entity.Address, tag entity.LinkTag) ([]entity.Address, error)
}

// ResolveLinks - walks next_move links from the game address and returns the moves oldest first.
func ResolveLinks(ctx context.Context, src EntrySource, game entity.Address) ([]entity.MoveRecord, error) {
	var (
		chain   []entity.MoveRecord
		visited = map[entity.Address]struct{}{game: {}}
		current = game
	)

	for {
		next, err := src.GetLinks(ctx, current, entity.LinkNextMove)
		if err != nil {
			return nil, fmt.Errorf("failed to get next move of %s: %w", current, err)
		}

		switch len(next) {
		case 0:
			return chain, nil
		case 1:
		default:
			return nil, fmt.Errorf("%w: %s has %d next moves", apperror.ErrChainForked, current, len(next))
		}

		address := next[0]
		if _, seen := visited[address]; seen {
			return nil, fmt.Errorf("%w: %s revisited", apperror.ErrChainCycle, address)
		}
		visited[address] = struct{}{}

		entry, err := src.GetEntry(ctx, address)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", apperror.ErrChainMissingEntry, address)
			}

			return nil, fmt.Errorf("failed to get move %s: %w", address, err)
		}

		move, err := decodeMove(address, entry)
		if err != nil {
			return nil, err
		}

		if move.Game != game || move.PreviousMove != current {
			return nil, fmt.Errorf("%w: move %s does not follow %s in game %s", apperror.ErrChainMalformed, address, current, game)
		}

		chain = append(chain, entity.MoveRecord{Address: address, Move: move})
		current = address
	}
}

// ResolveLog - orders the moves of a game found in a local log by their previous_move
// back-references. The record at exclude is dropped before ordering.
func ResolveLog(game entity.Address, records []entity.Record, exclude entity.Address) ([]entity.MoveRecord, error) {
	moves := make(map[entity.Address]entity.Move)
	children := make(map[entity.Address][]entity.Address)

	for _, record := range records {
		if record.Entry.Type != entity.EntryTypeMove || record.Address == exclude {
			continue
		}

		if _, seen := moves[record.Address]; seen {
			continue
		}

		move, err := decodeMove(record.Address, record.Entry)
		if err != nil {
			return nil, err
		}

		if move.Game != game {
			continue
		}

		moves[record.Address] = move
		children[move.PreviousMove] = append(children[move.PreviousMove], record.Address)
	}

	var (
		chain   = make([]entity.MoveRecord, 0, len(moves))
		visited = map[entity.Address]struct{}{game: {}}
		current = game
	)

	for {
		next := children[current]
		if len(next) == 0 {
			break
		}

		if len(next) > 1 {
			sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
			return nil, fmt.Errorf("%w: %s has next moves %v", apperror.ErrChainForked, current, next)
		}

		address := next[0]
		if _, seen := visited[address]; seen {
			return nil, fmt.Errorf("%w: %s revisited", apperror.ErrChainCycle, address)
		}
		visited[address] = struct{}{}

		chain = append(chain, entity.MoveRecord{Address: address, Move: moves[address]})
		current = address
	}

	if len(chain) != len(moves) {
		return nil, fmt.Errorf("%w: %d of %d moves are not reachable from game %s",
			apperror.ErrChainMalformed, len(moves)-len(chain), len(moves), game)
	}

	return chain, nil
}

// Tip - returns the address a new move must reference as previous_move.
func Tip(game entity.Address, chain []entity.MoveRecord) entity.Address {
	if len(chain) == 0 {
		return game
	}

	return chain[len(chain)-1].Address
}

// Moves - strips addresses from a resolved chain.
func Moves(chain []entity.MoveRecord) []entity.Move {
	moves := make([]entity.Move, 0, len(chain))
	for _, record := range chain {
		moves = append(moves, record.Move)
	}

	return moves
}

func decodeMove(address entity.Address, entry entity.Entry) (entity.Move, error) {
	if entry.Type != entity.EntryTypeMove {
		return entity.Move{}, fmt.Errorf("%w: %s is a %s entry, not a move", apperror.ErrChainMalformed, address, entry.Type)
	}

	var move entity.Move
	if err := entry.Decode(&move); err != nil {
		return entity.Move{}, fmt.Errorf("%w: %w", apperror.ErrChainMalformed, err)
	}

	return move, nil
}
