// Package rules defines the pluggable ruleset contract shared by the reducer
// and the validator, and the externally tagged JSON form of move types.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

const TagResign = "Resign"

// MoveType is one variant of a ruleset's closed set of moves.
// Variant returns the tag and the payload, payload is nil for unit variants.
type MoveType interface {
	Variant() (string, any)
}

// Ruleset is a game implementation. One is chosen at startup.
type Ruleset interface {
	Name() string
	BoardSize() int
	Initial() entity.GameState
	ParseMove(raw json.RawMessage) (MoveType, error)
	// Validate - move type specific checks. Turn order and terminal state are checked by the caller.
	Validate(move MoveType, player entity.Player, state entity.GameState) error
	// Apply - returns the state after the move. It does not record the move itself.
	Apply(move MoveType, player entity.Player, state entity.GameState) (entity.GameState, error)
	Describe() []MoveType
	// Marks - the glyphs used for player 1 and player 2 pieces.
	Marks() (rune, rune)
}

// Resign is shared by every ruleset.
type Resign struct{}

func (Resign) Variant() (string, any) {
	return TagResign, nil
}

// ApplyResign - marks the player as resigned and the opponent as the winner.
func ApplyResign(player entity.Player, state entity.GameState) entity.GameState {
	resigner := state.Player(player)
	resigner.Resigned = true

	opponent := state.Player(player.Opponent())
	opponent.Winner = true

	return state.WithPlayer(player, resigner).WithPlayer(player.Opponent(), opponent)
}

// EncodeMove - returns the canonical JSON form of a move type.
func EncodeMove(move MoveType) (json.RawMessage, error) {
	tag, payload := move.Variant()

	return EncodeVariant(tag, payload)
}

// EncodeVariant - encodes unit variants as a bare string and the rest as {"Tag": payload}.
func EncodeVariant(tag string, payload any) (json.RawMessage, error) {
	var (
		raw []byte
		err error
	)

	if payload == nil {
		raw, err = json.Marshal(tag)
	} else {
		raw, err = json.Marshal(map[string]any{tag: payload})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode %s move: %w", tag, err)
	}

	return raw, nil
}

// SplitVariant - splits an externally tagged value into its tag and payload.
// "Resign" and {"Resign":null} both yield a nil payload.
func SplitVariant(raw json.RawMessage) (string, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil, apperror.ErrMalformedMove
	}

	if trimmed[0] == '"' {
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return "", nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMove, err)
		}

		return tag, nil, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return "", nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMove, err)
	}

	if len(object) != 1 {
		return "", nil, fmt.Errorf("%w: expected exactly one variant, got %d", apperror.ErrMalformedMove, len(object))
	}

	for tag, payload := range object {
		if bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
			return tag, nil, nil
		}

		return tag, payload, nil
	}

	return "", nil, apperror.ErrMalformedMove
}

// DecodePayload - strictly decodes a variant payload.
func DecodePayload(tag string, payload json.RawMessage, v any) error {
	if payload == nil {
		return fmt.Errorf("%w: %s requires a payload", apperror.ErrMalformedMove, tag)
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %w", apperror.ErrMalformedMove, tag, err)
	}

	return nil
}

// DescribeJSON - returns the exemplar moves of a ruleset in wire form.
func DescribeJSON(ruleset Ruleset) ([]json.RawMessage, error) {
	exemplars := ruleset.Describe()
	encoded := make([]json.RawMessage, 0, len(exemplars))

	for _, move := range exemplars {
		raw, err := EncodeMove(move)
		if err != nil {
			return nil, err
		}

		encoded = append(encoded, raw)
	}

	return encoded, nil
}
