package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  set_game ADDRESS   select the game to play
  moves              list an example of every move type
  make_move MOVE     make a move, MOVE is JSON
  render             draw the current game
  state              print the current game state
  exit               leave the shell`

func newShellCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Play interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}
}

func runShell(cmd *cobra.Command, opts *options) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, "Enter \"help\" for a list of commands.")
	prompt(out, opts.game)

	for scanner.Scan() {
		name, args := splitFirstWord(scanner.Text())

		switch name {
		case "":
		case "help":
			fmt.Fprintln(out, shellHelp)
		case "set_game":
			if args == "" {
				fmt.Fprintln(out, "set_game needs an address")
				break
			}
			opts.game = args
			fmt.Fprintf(out, "Setting current game to %s\n", args)
		case "moves":
			shellCall(cmd, opts, "get_valid_moves", nil)
		case "render":
			if params, err := opts.gameParams(); err != nil {
				fmt.Fprintln(out, err)
			} else {
				shellCall(cmd, opts, "render_state", params)
			}
		case "state":
			if params, err := opts.gameParams(); err != nil {
				fmt.Fprintln(out, err)
			} else {
				shellCall(cmd, opts, "get_state", params)
			}
		case "make_move":
			shellMove(cmd, opts, args)
		case "exit", "quit":
			fmt.Fprintln(out, "You can resume any game at a later date. Bye!")
			return nil
		default:
			fmt.Fprintln(out, "Invalid command!")
		}

		prompt(out, opts.game)
	}

	return scanner.Err()
}

func shellCall(cmd *cobra.Command, opts *options, method string, params any) {
	if err := opts.print(cmd, method, params); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), err)
	}
}

func shellMove(cmd *cobra.Command, opts *options, move string) {
	out := cmd.OutOrStdout()

	params, err := opts.gameParams()
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}

	if !json.Valid([]byte(move)) {
		fmt.Fprintln(out, errInvalidMove)
		return
	}

	params["move_type"] = json.RawMessage(move)
	if _, err = opts.call(cmd.Context(), "make_move", params); err != nil {
		fmt.Fprintf(out, "Unable to make move on this game: %v\n", err)
		return
	}

	fmt.Fprintln(out, "Move made successfully")
}

func prompt(w io.Writer, game string) {
	if game == "" {
		game = "No game"
	}

	fmt.Fprintf(w, "%s> ", game)
}

func splitFirstWord(line string) (string, string) {
	line = strings.TrimSpace(line)

	index := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if index < 0 {
		return line, ""
	}

	return line[:index], strings.TrimSpace(line[index:])
}
