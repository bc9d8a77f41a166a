package engine

import (
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

// Reduce - folds the ordered moves over the ruleset's initial state.
func (that *Engine) Reduce(game entity.Game, moves []entity.Move) (entity.GameState, error) {
	state := that.ruleset.Initial()

	for i, move := range moves {
		next, err := that.Step(game, state, move)
		if err != nil {
			return entity.GameState{}, fmt.Errorf("failed to apply move %d: %w", i, err)
		}

		state = next
	}

	return state, nil
}

// Step - applies one move and records it. The move is assumed to be valid.
func (that *Engine) Step(game entity.Game, state entity.GameState, move entity.Move) (entity.GameState, error) {
	player, err := game.PlayerOf(move.Author)
	if err != nil {
		return entity.GameState{}, err
	}

	moveType, err := that.ruleset.ParseMove(move.MoveType)
	if err != nil {
		return entity.GameState{}, err
	}

	next, err := that.ruleset.Apply(moveType, player, state)
	if err != nil {
		return entity.GameState{}, err
	}

	moves := make([]entity.Move, 0, len(state.Moves)+1)
	moves = append(moves, state.Moves...)
	next.Moves = append(moves, move)

	return next, nil
}
