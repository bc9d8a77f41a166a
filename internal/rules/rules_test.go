package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/rules"
	"github.com/rocketscienceinc/movechain/internal/rules/tictactoe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitVariant(t *testing.T) {
	t.Run("Unit variant as a string", func(t *testing.T) {
		tag, payload, err := rules.SplitVariant(json.RawMessage(`"Resign"`))
		require.NoError(t, err)
		assert.Equal(t, "Resign", tag)
		assert.Nil(t, payload)
	})

	t.Run("Unit variant with null payload", func(t *testing.T) {
		tag, payload, err := rules.SplitVariant(json.RawMessage(`{"Resign": null}`))
		require.NoError(t, err)
		assert.Equal(t, "Resign", tag)
		assert.Nil(t, payload)
	})

	t.Run("Struct variant", func(t *testing.T) {
		tag, payload, err := rules.SplitVariant(json.RawMessage(`{"Place":{"pos":{"x":1,"y":2}}}`))
		require.NoError(t, err)
		assert.Equal(t, "Place", tag)
		assert.JSONEq(t, `{"pos":{"x":1,"y":2}}`, string(payload))
	})

	t.Run("Two variants at once are malformed", func(t *testing.T) {
		_, _, err := rules.SplitVariant(json.RawMessage(`{"Place":{},"Resign":null}`))
		require.ErrorIs(t, err, apperror.ErrMalformedMove)
	})

	t.Run("Numbers are malformed", func(t *testing.T) {
		_, _, err := rules.SplitVariant(json.RawMessage(`42`))
		require.ErrorIs(t, err, apperror.ErrMalformedMove)
	})
}

func TestEncodeMove(t *testing.T) {
	raw, err := rules.EncodeMove(rules.Resign{})
	require.NoError(t, err)
	assert.Equal(t, `"Resign"`, string(raw))

	raw, err = rules.EncodeMove(tictactoe.Place{Pos: entity.Piece{X: 2, Y: 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"Place":{"pos":{"x":2,"y":1}}}`, string(raw))
}

func TestApplyResign(t *testing.T) {
	// Given: a fresh state
	state := tictactoe.New().Initial()

	// When: player 1 resigns
	next := rules.ApplyResign(entity.Player1, state)

	// Then: player 1 resigned and player 2 wins
	assert.True(t, next.Player1.Resigned)
	assert.False(t, next.Player1.Winner)
	assert.True(t, next.Player2.Winner)
	assert.True(t, next.IsOver())

	// And: the input state is untouched
	assert.False(t, state.IsOver())
}

func TestRenderText(t *testing.T) {
	ruleset := tictactoe.New()
	alice := entity.Address("alice")
	bob := entity.Address("bob")

	t.Run("Empty game", func(t *testing.T) {
		text, err := rules.RenderText(ruleset, ruleset.Initial(), alice)
		require.NoError(t, err)

		expected := "\nNon-creator must make the first move \n\n" +
			"  x  0 1 2\ny\n" +
			"0   | | | |\n" +
			"1   | | | |\n" +
			"2   | | | |\n"
		assert.Equal(t, expected, text)
	})

	t.Run("After a move by the viewer", func(t *testing.T) {
		// Given: bob placed a cross in the centre
		state := ruleset.Initial()
		state.Player2.Pieces = []entity.Piece{{X: 1, Y: 1}}
		state.Moves = []entity.Move{{Author: bob}}

		// When: rendering for bob and for alice
		forBob, err := rules.RenderText(ruleset, state, bob)
		require.NoError(t, err)
		forAlice, err := rules.RenderText(ruleset, state, alice)
		require.NoError(t, err)

		// Then: the banners differ and the mark is drawn
		assert.Contains(t, forBob, "It is your opponents turn \n")
		assert.Contains(t, forAlice, "It is your turn \n")
		assert.Contains(t, forBob, "1   | |X| |\n")
	})

	t.Run("Game over footer", func(t *testing.T) {
		state := rules.ApplyResign(entity.Player2, ruleset.Initial())

		text, err := rules.RenderText(ruleset, state, alice)
		require.NoError(t, err)
		assert.Contains(t, text, "Game over: Player 2 has resigned!\n")
	})
}
