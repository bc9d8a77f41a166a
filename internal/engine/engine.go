// Package engine derives game state from a move chain and decides whether a
// candidate move may extend it. Everything here is a pure function of its
// inputs so that every peer reaches the same verdict.
package engine

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/rules"
)

type Engine struct {
	ruleset rules.Ruleset
}

func New(ruleset rules.Ruleset) *Engine {
	return &Engine{ruleset: ruleset}
}

func (that *Engine) Ruleset() rules.Ruleset {
	return that.ruleset
}

// StateFromLinks - resolves the chain through the store and folds it.
func (that *Engine) StateFromLinks(ctx context.Context, src EntrySource, address entity.Address, game entity.Game) (entity.GameState, []entity.MoveRecord, error) {
	chain, err := ResolveLinks(ctx, src, address)
	if err != nil {
		return entity.GameState{}, nil, err
	}

	state, err := that.Reduce(game, Moves(chain))
	if err != nil {
		return entity.GameState{}, nil, err
	}

	return state, chain, nil
}

// CheckMove - decides whether candidate may extend the game using only the given local log.
// The candidate is removed from the log before the chain is ordered, so a log that already
// holds it yields the same verdict as one that does not.
func (that *Engine) CheckMove(address entity.Address, game entity.Game, records []entity.Record, candidateAddress entity.Address, candidate entity.Move) error {
	chain, err := ResolveLog(address, records, candidateAddress)
	if err != nil {
		return err
	}

	if tip := Tip(address, chain); candidate.PreviousMove != tip {
		return fmt.Errorf("%w: previous move %s, tip %s", apperror.ErrNotChainTip, candidate.PreviousMove, tip)
	}

	state, err := that.Reduce(game, Moves(chain))
	if err != nil {
		return err
	}

	return that.Validate(game, state, candidate)
}
