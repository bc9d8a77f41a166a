package board

import "github.com/rocketscienceinc/movechain/internal/entity"

// Delta - returns to minus from on both axes.
func Delta(from, to entity.Piece) (int, int) {
	return to.X - from.X, to.Y - from.Y
}

// IsStep - reports a diagonal move of exactly one square.
func IsStep(from, to entity.Piece) bool {
	dx, dy := Delta(from, to)
	return abs(dx) == 1 && abs(dy) == 1
}

// IsJump - reports a diagonal move of exactly two squares.
func IsJump(from, to entity.Piece) bool {
	dx, dy := Delta(from, to)
	return abs(dx) == 2 && abs(dy) == 2
}

// Midpoint - returns the square between from and to.
func Midpoint(from, to entity.Piece) entity.Piece {
	return entity.Piece{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2}
}

// IsForward - reports whether the move advances in the player's direction.
// Player 1 moves towards higher y, player 2 towards lower y.
func IsForward(player entity.Player, from, to entity.Piece) bool {
	_, dy := Delta(from, to)
	if player == entity.Player1 {
		return dy > 0
	}
	return dy < 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
