package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rocketscienceinc/movechain/pkg/rpcclient"
)

var (
	errNoGame      = errors.New("no game selected: pass --game")
	errInvalidMove = errors.New("the move was not valid JSON")
)

type options struct {
	url     string
	game    string
	output  string
	timeout time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "gamecli",
		Short:         "Play board games through a local node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", "http://localhost:9090", "HTTP address of the node")
	flags.StringVar(&opts.game, "game", "", "address of the current game")
	flags.StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		noArgsCommand(opts, "whoami", "Print the agent address of the node", "whoami"),
		noArgsCommand(opts, "moves", "List an example of every move type", "get_valid_moves"),
		noArgsCommand(opts, "proposals", "List open game proposals", "get_proposals"),
		gameCommand(opts, "state", "Print the state of the current game", "get_state"),
		gameCommand(opts, "render", "Draw the current game", "render_state"),
		gameCommand(opts, "verify", "Re-validate every move of the current game", "verify_game"),
		proposalCommand(opts, "responses", "List games created from a proposal", "check_responses"),
		proposalCommand(opts, "withdraw", "Remove a proposal", "remove_proposal"),
		newCreateGameCommand(opts),
		newMakeMoveCommand(opts),
		newImageCommand(opts),
		newProposeCommand(opts),
		newAcceptCommand(opts),
		newShellCommand(opts),
	)

	return root
}

func (that *options) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	return rpcclient.New(that.url).CallRaw(ctx, method, params)
}

func (that *options) print(cmd *cobra.Command, method string, params any) error {
	raw, err := that.call(cmd.Context(), method, params)
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), that.output, raw)
}

func (that *options) gameParams() (map[string]any, error) {
	if that.game == "" {
		return nil, errNoGame
	}

	return map[string]any{"game": that.game}, nil
}

func noArgsCommand(opts *options, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.print(cmd, method, nil)
		},
	}
}

func gameCommand(opts *options, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := opts.gameParams()
			if err != nil {
				return err
			}

			return opts.print(cmd, method, params)
		},
	}
}

func proposalCommand(opts *options, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PROPOSAL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.print(cmd, method, map[string]any{"proposal_address": args[0]})
		},
	}
}

func newCreateGameCommand(opts *options) *cobra.Command {
	var timestamp uint32

	cmd := &cobra.Command{
		Use:   "create-game OPPONENT",
		Short: "Start a game against another agent. The opponent moves first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"opponent": args[0]}
			if cmd.Flags().Changed("timestamp") {
				params["timestamp"] = timestamp
			}

			return opts.print(cmd, "create_game", params)
		},
	}

	cmd.Flags().Uint32Var(&timestamp, "timestamp", 0, "creation time, defaults to now")

	return cmd
}

func newMakeMoveCommand(opts *options) *cobra.Command {
	var timestamp uint32

	cmd := &cobra.Command{
		Use:     "make-move MOVE",
		Short:   "Make a move in the current game",
		Example: `  gamecli --game <address> make-move '{"MovePiece":{"from":{"x":1,"y":5},"to":{"x":0,"y":4}}}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := opts.gameParams()
			if err != nil {
				return err
			}

			if !json.Valid([]byte(args[0])) {
				return errInvalidMove
			}

			params["move_type"] = json.RawMessage(args[0])
			if cmd.Flags().Changed("timestamp") {
				params["timestamp"] = timestamp
			}

			if _, err = opts.call(cmd.Context(), "make_move", params); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Move made successfully")

			return nil
		},
	}

	cmd.Flags().Uint32Var(&timestamp, "timestamp", 0, "move time, defaults to now")

	return cmd
}

func newImageCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "image FILE",
		Short: "Save the current game as a PNG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := opts.gameParams()
			if err != nil {
				return err
			}

			raw, err := opts.call(cmd.Context(), "render_image", params)
			if err != nil {
				return err
			}

			var encoded string
			if err = json.Unmarshal(raw, &encoded); err != nil {
				return fmt.Errorf("decode image: %w", err)
			}

			image, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return fmt.Errorf("decode image: %w", err)
			}

			if err = os.WriteFile(args[0], image, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", args[0])

			return nil
		},
	}
}

func newProposeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "propose MESSAGE",
		Short: "Advertise that you want to play",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.print(cmd, "create_proposal", map[string]any{"message": args[0]})
		},
	}
}

func newAcceptCommand(opts *options) *cobra.Command {
	var createdAt uint32

	cmd := &cobra.Command{
		Use:   "accept PROPOSAL",
		Short: "Accept a proposal and start the game. The proposer moves first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"proposal_address": args[0]}
			if cmd.Flags().Changed("created-at") {
				params["created_at"] = createdAt
			}

			return opts.print(cmd, "accept_proposal", params)
		},
	}

	cmd.Flags().Uint32Var(&createdAt, "created-at", 0, "creation time, defaults to now")

	return cmd
}
