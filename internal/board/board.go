// Package board holds the dense board representation and the geometry
// predicates shared by the rulesets.
package board

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

// Square is the content of one board cell.
type Square uint8

const (
	Empty   Square = 0
	Player1 Square = 1
	Player2 Square = 2
)

var (
	ErrPieceOutOfBounds = errors.New("piece is outside the board")
	ErrSquareTaken      = errors.New("two pieces share a square")
)

// Board is a dense size x size matrix indexed by [x][y].
type Board struct {
	size  int
	cells [][]Square
}

func New(size int) *Board {
	cells := make([][]Square, size)
	for x := range cells {
		cells[x] = make([]Square, size)
	}

	return &Board{size: size, cells: cells}
}

// FromState - converts the sparse per-player piece lists to a dense board.
func FromState(size int, state entity.GameState) (*Board, error) {
	return FromPieces(size, state.Player1.Pieces, state.Player2.Pieces)
}

// FromPieces - converts sparse piece lists to a dense board.
func FromPieces(size int, player1, player2 []entity.Piece) (*Board, error) {
	b := New(size)

	place := func(pieces []entity.Piece, square Square) error {
		for _, piece := range pieces {
			if !b.InBounds(piece) {
				return fmt.Errorf("%w: (%d,%d)", ErrPieceOutOfBounds, piece.X, piece.Y)
			}

			if b.At(piece) != Empty {
				return fmt.Errorf("%w: (%d,%d)", ErrSquareTaken, piece.X, piece.Y)
			}

			b.Set(piece, square)
		}

		return nil
	}

	if err := place(player1, Player1); err != nil {
		return nil, err
	}

	if err := place(player2, Player2); err != nil {
		return nil, err
	}

	return b, nil
}

func (that *Board) Size() int {
	return that.size
}

// InBounds - reports whether 0 <= x,y < size.
func (that *Board) InBounds(pos entity.Piece) bool {
	return pos.X >= 0 && pos.Y >= 0 && pos.X < that.size && pos.Y < that.size
}

// At - returns the square at pos. Callers check bounds first.
func (that *Board) At(pos entity.Piece) Square {
	return that.cells[pos.X][pos.Y]
}

func (that *Board) Set(pos entity.Piece, square Square) {
	that.cells[pos.X][pos.Y] = square
}

// Sparse - converts back to per-player piece lists, ordered x then y.
func (that *Board) Sparse() ([]entity.Piece, []entity.Piece) {
	player1 := make([]entity.Piece, 0)
	player2 := make([]entity.Piece, 0)

	for x, column := range that.cells {
		for y, square := range column {
			switch square {
			case Player1:
				player1 = append(player1, entity.Piece{X: x, Y: y})
			case Player2:
				player2 = append(player2, entity.Piece{X: x, Y: y})
			}
		}
	}

	return player1, player2
}

// Apply - writes the dense board back into a copy of state.
func (that *Board) Apply(state entity.GameState) entity.GameState {
	next := state.Clone()
	next.Player1.Pieces, next.Player2.Pieces = that.Sparse()

	return next
}

// Lines - returns every row, column and both diagonals as coordinate lists.
func (that *Board) Lines() [][]entity.Piece {
	lines := make([][]entity.Piece, 0, 2*that.size+2)

	for i := 0; i < that.size; i++ {
		row := make([]entity.Piece, 0, that.size)
		column := make([]entity.Piece, 0, that.size)
		for j := 0; j < that.size; j++ {
			row = append(row, entity.Piece{X: j, Y: i})
			column = append(column, entity.Piece{X: i, Y: j})
		}
		lines = append(lines, row, column)
	}

	down := make([]entity.Piece, 0, that.size)
	up := make([]entity.Piece, 0, that.size)
	for i := 0; i < that.size; i++ {
		down = append(down, entity.Piece{X: i, Y: i})
		up = append(up, entity.Piece{X: i, Y: that.size - 1 - i})
	}

	return append(lines, down, up)
}

// SquareOf - returns the square value used for a player's pieces.
func SquareOf(player entity.Player) Square {
	if player == entity.Player1 {
		return Player1
	}
	return Player2
}

// OwnerOf - returns which player owns a non-empty square.
func OwnerOf(square Square) (entity.Player, bool) {
	switch square {
	case Player1:
		return entity.Player1, true
	case Player2:
		return entity.Player2, true
	default:
		return 0, false
	}
}
