package entity

import (
	"encoding/json"

	"github.com/rocketscienceinc/movechain/internal/apperror"
)

// ProposalsAnchor is the well known anchor all game proposals hang off.
const ProposalsAnchor = "game_proposals"

type Player int

const (
	Player1 Player = 1
	Player2 Player = 2
)

func (that Player) Opponent() Player {
	if that == Player1 {
		return Player2
	}
	return Player1
}

// Game is the immutable root of a move chain.
// By convention player 1 committed the game and player 2 makes the first move.
type Game struct {
	Player1   Address `json:"player_1"`
	Player2   Address `json:"player_2"`
	CreatedAt uint32  `json:"created_at"`
}

// PlayerOf - resolves which side of the game an agent plays.
func (that Game) PlayerOf(agent Address) (Player, error) {
	switch isFirst, isSecond := agent == that.Player1, agent == that.Player2; {
	case isFirst && isSecond:
		return 0, apperror.ErrSelfPlay
	case isFirst:
		return Player1, nil
	case isSecond:
		return Player2, nil
	default:
		return 0, apperror.ErrPlayerNotInGame
	}
}

// AddressOf - returns the agent address playing the given side.
func (that Game) AddressOf(player Player) Address {
	if player == Player1 {
		return that.Player1
	}
	return that.Player2
}

// Move is one player's action, linked to its predecessor.
// PreviousMove is the game address for the first move of a game.
type Move struct {
	Game         Address         `json:"game"`
	Author       Address         `json:"author"`
	MoveType     json.RawMessage `json:"move_type"`
	PreviousMove Address         `json:"previous_move"`
	Timestamp    uint32          `json:"timestamp"`
}

// MoveRecord is a move together with its content address.
type MoveRecord struct {
	Address Address `json:"address"`
	Move    Move    `json:"move"`
}

// Proposal is an agent advertising that they want to play.
type Proposal struct {
	Agent   Address `json:"agent"`
	Message string  `json:"message"`
}

// Agent is the identity entry a node commits when it starts.
type Agent struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Deletion marks a previously committed entry as removed.
type Deletion struct {
	DeletedAddress Address `json:"deleted_address"`
}

// AnchorEntry - returns the entry for a named anchor.
func AnchorEntry(name string) Entry {
	raw, _ := json.Marshal(name)

	return Entry{Type: EntryTypeAnchor, Content: raw}
}
