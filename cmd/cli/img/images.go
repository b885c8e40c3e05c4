package img

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/ai"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/imagery"
	"github.com/myrjola/whodunnit/internal/logging"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"strings"
)

var Group = &cobra.Group{
	ID:    "img",
	Title: "Image operations",
}

func init() {
	Generate.Flags().String("db", "./whodunnit.sqlite", "path to SQLite database")
	Generate.Flags().String("game", "", "illustrate every entity of this game id")
	Generate.Flags().String("clue", "", "with --game, re-render only the clue with this title")
}

var Generate = &cobra.Command{
	Use:     "gen [prompt]",
	GroupID: "img",
	Short:   "Generate images",
	Long: `Generates an image with Dall-E for the given prompt, or with --game illustrates
every character, location and clue of a stored game. --clue re-renders a single clue`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := ai.NewClient(os.Getenv("OPENAI_API_KEY"))

		gameID, _ := cmd.Flags().GetString("game")
		if gameID == "" {
			if len(args) == 0 {
				_, _ = fmt.Fprintln(os.Stderr, "either a prompt or --game is required")
				return
			}
			url, err := client.CreateImage(ctx, strings.Join(args, " "))
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Image creation error: %v\n", err)
				return
			}
			fmt.Println(url)
			return
		}

		logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			AddSource:   false,
			Level:       slog.LevelInfo,
			ReplaceAttr: nil,
		})))
		dbPath, _ := cmd.Flags().GetString("db")
		dbs, err := sqlite.NewDatabase(ctx, dbPath, logger)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Database error: %v\n", err)
			return
		}
		defer func() {
			_ = dbs.Close()
		}()

		store := gamestate.NewStore(dbs, logger)
		generator := imagery.NewGenerator(client, store, logger)
		if clueTitle, _ := cmd.Flags().GetString("clue"); clueTitle != "" {
			if err := generator.IllustrateClue(ctx, gameID, clueTitle); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Illustration error: %v\n", err)
				return
			}
			fmt.Printf("Illustrated clue %q of game %s\n", clueTitle, gameID)
			return
		}
		if err := generator.IllustrateGame(ctx, gameID); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Illustration error: %v\n", err)
			return
		}
		fmt.Printf("Illustrated game %s\n", gameID)
	},
}
