package engine

import (
	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

// Validate - checks the candidate against the state derived without it.
// Author, game over and turn order are checked before the move type is looked at.
func (that *Engine) Validate(game entity.Game, state entity.GameState, move entity.Move) error {
	player, err := game.PlayerOf(move.Author)
	if err != nil {
		return err
	}

	if state.IsOver() {
		return apperror.ErrGameFinished
	}

	if err := checkTurn(game, state, move.Author); err != nil {
		return err
	}

	moveType, err := that.ruleset.ParseMove(move.MoveType)
	if err != nil {
		return err
	}

	return that.ruleset.Validate(moveType, player, state)
}

// checkTurn - players alternate. Player 2 opens the game.
func checkTurn(game entity.Game, state entity.GameState, author entity.Address) error {
	last, ok := state.LastMove()
	if !ok {
		if author != game.Player2 {
			return apperror.ErrFirstMove
		}

		return nil
	}

	if last.Author == author {
		return apperror.ErrNotYourTurn
	}

	return nil
}
