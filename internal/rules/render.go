package rules

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/movechain/internal/board"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

// RenderText - draws the board as seen by viewer.
func RenderText(ruleset Ruleset, state entity.GameState, viewer entity.Address) (string, error) {
	dense, err := board.FromState(ruleset.BoardSize(), state)
	if err != nil {
		return "", fmt.Errorf("failed to build board: %w", err)
	}

	var out strings.Builder

	out.WriteString("\n")
	out.WriteString(TurnBanner(state, viewer))
	out.WriteString(" \n\n")

	out.WriteString("  x ")
	for x := 0; x < dense.Size(); x++ {
		fmt.Fprintf(&out, " %d", x)
	}
	out.WriteString("\ny\n")

	mark1, mark2 := ruleset.Marks()
	for y := 0; y < dense.Size(); y++ {
		fmt.Fprintf(&out, "%d   |", y)
		for x := 0; x < dense.Size(); x++ {
			glyph := ' '
			switch dense.At(entity.Piece{X: x, Y: y}) {
			case board.Player1:
				glyph = mark1
			case board.Player2:
				glyph = mark2
			}
			fmt.Fprintf(&out, "%c|", glyph)
		}
		out.WriteString("\n")
	}

	if footer := GameOverBanner(state); footer != "" {
		out.WriteString(footer)
		out.WriteString("\n")
	}

	return out.String(), nil
}

// TurnBanner - whose turn it is from the viewer's point of view.
func TurnBanner(state entity.GameState, viewer entity.Address) string {
	last, ok := state.LastMove()
	switch {
	case !ok:
		return "Non-creator must make the first move"
	case last.Author == viewer:
		return "It is your opponents turn"
	default:
		return "It is your turn"
	}
}

func GameOverBanner(state entity.GameState) string {
	switch {
	case state.Player1.Resigned:
		return "Game over: Player 1 has resigned!"
	case state.Player2.Resigned:
		return "Game over: Player 2 has resigned!"
	case state.Player1.Winner:
		return "Game over: Player 1 is the winner!"
	case state.Player2.Winner:
		return "Game over: Player 2 is the winner!"
	default:
		return ""
	}
}
