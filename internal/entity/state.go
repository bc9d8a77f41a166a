package entity

// Piece is a board coordinate holding a piece. x is the column, y the row.
type Piece struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type PlayerState struct {
	Pieces   []Piece `json:"pieces"`
	Resigned bool    `json:"resigned"`
	Winner   bool    `json:"winner"`
}

// GameState is derived by folding the move chain. It is never persisted.
type GameState struct {
	Moves   []Move      `json:"moves"`
	Player1 PlayerState `json:"player_1"`
	Player2 PlayerState `json:"player_2"`
}

// Player - returns the sub-state of one side.
func (that GameState) Player(player Player) PlayerState {
	if player == Player1 {
		return that.Player1
	}
	return that.Player2
}

// WithPlayer - returns a copy of the state with one side replaced.
func (that GameState) WithPlayer(player Player, state PlayerState) GameState {
	next := that.Clone()
	if player == Player1 {
		next.Player1 = state.Clone()
	} else {
		next.Player2 = state.Clone()
	}

	return next
}

// IsOver - reports whether a player resigned or won.
func (that GameState) IsOver() bool {
	return that.Player1.Resigned || that.Player1.Winner || that.Player2.Resigned || that.Player2.Winner
}

// LastMove - returns the most recently applied move.
func (that GameState) LastMove() (Move, bool) {
	if len(that.Moves) == 0 {
		return Move{}, false
	}

	return that.Moves[len(that.Moves)-1], true
}

// Clone - deep copies the state so callers never share slices.
func (that GameState) Clone() GameState {
	moves := make([]Move, len(that.Moves))
	copy(moves, that.Moves)

	return GameState{
		Moves:   moves,
		Player1: that.Player1.Clone(),
		Player2: that.Player2.Clone(),
	}
}

func (that PlayerState) Clone() PlayerState {
	pieces := make([]Piece, len(that.Pieces))
	copy(pieces, that.Pieces)

	return PlayerState{
		Pieces:   pieces,
		Resigned: that.Resigned,
		Winner:   that.Winner,
	}
}
