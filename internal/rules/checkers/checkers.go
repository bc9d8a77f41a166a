// Package checkers is the forward-only checkers ruleset on an 8x8 board.
package checkers

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/board"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/rules"
)

const (
	Name      = "checkers"
	BoardSize = 8

	TagMovePiece = "MovePiece"

	whitePiece = '░'
	blackPiece = '▓'
)

// MovePiece moves one piece diagonally, a two square move is a jump.
type MovePiece struct {
	From entity.Piece `json:"from"`
	To   entity.Piece `json:"to"`
}

func (that MovePiece) Variant() (string, any) {
	return TagMovePiece, that
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
	return whitePiece, blackPiece
}

// Initial - three rows of pieces per side on the dark squares.
func (that *Ruleset) Initial() entity.GameState {
	dense := board.New(BoardSize)

	for y := 0; y < BoardSize; y++ {
		square := board.Empty
		switch {
		case y < 3:
			square = board.Player1
		case y >= BoardSize-3:
			square = board.Player2
		}

		for x := y % 2; x < BoardSize; x += 2 {
			dense.Set(entity.Piece{X: x, Y: y}, square)
		}
	}

	player1, player2 := dense.Sparse()

	return entity.GameState{
		Moves:   []entity.Move{},
		Player1: entity.PlayerState{Pieces: player1},
		Player2: entity.PlayerState{Pieces: player2},
	}
}

func (that *Ruleset) Describe() []rules.MoveType {
	return []rules.MoveType{
		MovePiece{From: entity.Piece{X: 0, Y: 0}, To: entity.Piece{X: 1, Y: 1}},
		rules.Resign{},
	}
}

func (that *Ruleset) ParseMove(raw json.RawMessage) (rules.MoveType, error) {
	tag, payload, err := rules.SplitVariant(raw)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagMovePiece:
		var move struct {
			From *entity.Piece `json:"from"`
			To   *entity.Piece `json:"to"`
		}
		if err := rules.DecodePayload(tag, payload, &move); err != nil {
			return nil, err
		}

		if move.From == nil || move.To == nil {
			return nil, fmt.Errorf("%w: MovePiece requires from and to", apperror.ErrMalformedMove)
		}

		return MovePiece{From: *move.From, To: *move.To}, nil
	case rules.TagResign:
		if payload != nil {
			return nil, fmt.Errorf("%w: Resign takes no payload", apperror.ErrMalformedMove)
		}

		return rules.Resign{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownMoveType, tag)
	}
}

// Validate - checks bounds, ownership, occupancy and diagonal forward geometry.
func (that *Ruleset) Validate(move rules.MoveType, player entity.Player, state entity.GameState) error {
	switch move := move.(type) {
	case MovePiece:
		return validateMovePiece(move, player, state)
	case rules.Resign:
		return nil
	default:
		return fmt.Errorf("%w: %T", apperror.ErrUnknownMoveType, move)
	}
}

func validateMovePiece(move MovePiece, player entity.Player, state entity.GameState) error {
	dense, err := board.FromState(BoardSize, state)
	if err != nil {
		return fmt.Errorf("failed to build board: %w", err)
	}

	if !dense.InBounds(move.From) || !dense.InBounds(move.To) {
		return apperror.ErrOutOfBounds
	}

	own := board.SquareOf(player)

	switch dense.At(move.From) {
	case board.Empty:
		return apperror.ErrNoPiece
	case own:
	default:
		return apperror.ErrOpponentPiece
	}

	if dense.At(move.To) != board.Empty {
		return apperror.ErrCellOccupied
	}

	isJump := board.IsJump(move.From, move.To)
	if !board.IsStep(move.From, move.To) && !isJump {
		return apperror.ErrNotDiagonal
	}

	if !board.IsForward(player, move.From, move.To) {
		return apperror.ErrBackwardMove
	}

	if isJump {
		switch dense.At(board.Midpoint(move.From, move.To)) {
		case board.Empty:
			return apperror.ErrJumpOverEmpty
		case own:
			return apperror.ErrJumpOwnPiece
		}
	}

	return nil
}

// Apply - relocates the piece and removes the midpoint piece of a jump.
// A player whose opponent has no pieces left is the winner.
func (that *Ruleset) Apply(move rules.MoveType, player entity.Player, state entity.GameState) (entity.GameState, error) {
	switch move := move.(type) {
	case MovePiece:
		return applyMovePiece(move, player, state)
	case rules.Resign:
		return rules.ApplyResign(player, state), nil
	default:
		return entity.GameState{}, fmt.Errorf("%w: %T", apperror.ErrUnknownMoveType, move)
	}
}

func applyMovePiece(move MovePiece, player entity.Player, state entity.GameState) (entity.GameState, error) {
	dense, err := board.FromState(BoardSize, state)
	if err != nil {
		return entity.GameState{}, fmt.Errorf("failed to build board: %w", err)
	}

	if !dense.InBounds(move.From) || !dense.InBounds(move.To) {
		return entity.GameState{}, apperror.ErrOutOfBounds
	}

	dense.Set(move.From, board.Empty)
	dense.Set(move.To, board.SquareOf(player))

	if board.IsJump(move.From, move.To) {
		dense.Set(board.Midpoint(move.From, move.To), board.Empty)
	}

	next := dense.Apply(state)

	if len(next.Player(player.Opponent()).Pieces) == 0 {
		mover := next.Player(player)
		mover.Winner = true
		next = next.WithPlayer(player, mover)
	}

	return next, nil
}
