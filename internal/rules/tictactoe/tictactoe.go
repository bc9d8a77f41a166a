// Package tictactoe is the 3x3 noughts and crosses ruleset.
package tictactoe

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/board"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/rules"
)

const (
	Name      = "tictactoe"
	BoardSize = 3

	TagPlace = "Place"

	// player 2 places crosses and goes first
	player1Mark = 'O'
	player2Mark = 'X'
)

type Place struct {
	Pos entity.Piece `json:"pos"`
}

func (that Place) Variant() (string, any) {
	return TagPlace, that
}

type Ruleset struct{}

func New() *Ruleset {
	return &Ruleset{}
}

func (that *Ruleset) Name() string {
	return Name
}

func (that *Ruleset) BoardSize() int {
	return BoardSize
}

func (that *Ruleset) Marks() (rune, rune) {
	return player1Mark, player2Mark
}

func (that *Ruleset) Initial() entity.GameState {
	return entity.GameState{
		Moves:   []entity.Move{},
		Player1: entity.PlayerState{Pieces: []entity.Piece{}},
		Player2: entity.PlayerState{Pieces: []entity.Piece{}},
	}
}

func (that *Ruleset) Describe() []rules.MoveType {
	return []rules.MoveType{
		Place{Pos: entity.Piece{X: 0, Y: 0}},
		rules.Resign{},
	}
}

func (that *Ruleset) ParseMove(raw json.RawMessage) (rules.MoveType, error) {
	tag, payload, err := rules.SplitVariant(raw)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagPlace:
		var move struct {
			Pos *entity.Piece `json:"pos"`
		}
		if err := rules.DecodePayload(tag, payload, &move); err != nil {
			return nil, err
		}

		if move.Pos == nil {
			return nil, fmt.Errorf("%w: Place requires pos", apperror.ErrMalformedMove)
		}

		return Place{Pos: *move.Pos}, nil
	case rules.TagResign:
		if payload != nil {
			return nil, fmt.Errorf("%w: Resign takes no payload", apperror.ErrMalformedMove)
		}

		return rules.Resign{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownMoveType, tag)
	}
}

func (that *Ruleset) Validate(move rules.MoveType, _ entity.Player, state entity.GameState) error {
	switch move := move.(type) {
	case Place:
		dense, err := board.FromState(BoardSize, state)
		if err != nil {
			return fmt.Errorf("failed to build board: %w", err)
		}

		if !dense.InBounds(move.Pos) {
			return apperror.ErrOutOfBounds
		}

		if dense.At(move.Pos) != board.Empty {
			return apperror.ErrCellOccupied
		}

		return nil
	case rules.Resign:
		return nil
	default:
		return fmt.Errorf("%w: %T", apperror.ErrUnknownMoveType, move)
	}
}

// Apply - places the mark and recomputes both winner flags from the lines.
func (that *Ruleset) Apply(move rules.MoveType, player entity.Player, state entity.GameState) (entity.GameState, error) {
	switch move := move.(type) {
	case Place:
		dense, err := board.FromState(BoardSize, state)
		if err != nil {
			return entity.GameState{}, fmt.Errorf("failed to build board: %w", err)
		}

		if !dense.InBounds(move.Pos) {
			return entity.GameState{}, apperror.ErrOutOfBounds
		}

		dense.Set(move.Pos, board.SquareOf(player))

		next := dense.Apply(state)
		next.Player1.Winner = hasLine(dense, board.Player1)
		next.Player2.Winner = hasLine(dense, board.Player2)

		return next, nil
	case rules.Resign:
		return rules.ApplyResign(player, state), nil
	default:
		return entity.GameState{}, fmt.Errorf("%w: %T", apperror.ErrUnknownMoveType, move)
	}
}

func hasLine(dense *board.Board, square board.Square) bool {
	for _, line := range dense.Lines() {
		complete := true
		for _, pos := range line {
			if dense.At(pos) != square {
				complete = false
				break
			}
		}

		if complete {
			return true
		}
	}

	return false
}
