package cli

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game and result commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameJoinCmd())
	cmd.AddCommand(newGameShowCmd())
	cmd.AddCommand(newGameResultCmd())
	cmd.AddCommand(newGameResultsCmd())
	cmd.AddCommand(newGameCloseCmd())

	return cmd
}

// gamePath builds an API path under /api/games/{code}
func gamePath(code string, suffix string) string {
	return "/api/games/" + url.PathEscape(strings.ToUpper(code)) + suffix
}

func newGameCreateCmd() *cobra.Command {
	var playerID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game with the given player as its first member",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]int64{"playerId": playerID}
			var result GameCreated

			if err := client.Post("/api/games", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&playerID, "player", 0, "Player ID (required)")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newGameJoinCmd() *cobra.Command {
	var playerID int64

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Add a player to a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]int64{"playerId": playerID}
			var result GameJoined

			if err := client.Post(gamePath(args[0], "/join"), req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&playerID, "player", 0, "Player ID (required)")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newGameShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show a game and its players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Get(gamePath(args[0], ""), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameResultCmd() *cobra.Command {
	var winnerID int64

	cmd := &cobra.Command{
		Use:   "result <code>",
		Short: "Record a win; every other player in the game takes a loss",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]int64{"winnerId": winnerID}
			var result ResultRecorded

			if err := client.Post(gamePath(args[0], "/result"), req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&winnerID, "winner", 0, "Winning player ID (required)")
	_ = cmd.MarkFlagRequired("winner")

	return cmd
}

func newGameResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <code>",
		Short: "List a game's results, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Result

			if err := client.Get(gamePath(args[0], "/results"), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <code>",
		Short: "Close a game to further joins and results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(gamePath(args[0], "/close"), nil, nil); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage("Game closed")
			return nil
		},
	}
}
