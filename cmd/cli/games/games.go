package games

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/ai"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/logging"
	"github.com/myrjola/whodunnit/internal/setup"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
)

var Group = &cobra.Group{
	ID:    "games",
	Title: "Game operations",
}

func init() {
	Create.Flags().String("db", "./whodunnit.sqlite", "path to SQLite database")
	Create.Flags().String("user", "cli", "user id to create the game for")
	Create.Flags().String("title", "", "game title")
	Create.Flags().String("description", "", "setting description")
	Create.Flags().Int("characters", 5, "character count including the victim")
	List.Flags().String("db", "./whodunnit.sqlite", "path to SQLite database")
}

func newLogger() *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
}

var Create = &cobra.Command{
	Use:     "create",
	GroupID: "games",
	Short:   "Create a game",
	Long:    "Generates a new murder mystery and persists it to the database",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger := newLogger()

		dbPath, _ := cmd.Flags().GetString("db")
		userID, _ := cmd.Flags().GetString("user")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		characterCount, _ := cmd.Flags().GetInt("characters")
		if title == "" || description == "" {
			_, _ = fmt.Fprintln(os.Stderr, "both --title and --description are required")
			return
		}

		dbs, err := sqlite.NewDatabase(ctx, dbPath, logger)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Database error: %v\n", err)
			return
		}
		defer func() {
			_ = dbs.Close()
		}()

		store := gamestate.NewStore(dbs, logger)
		client := ai.NewClient(os.Getenv("OPENAI_API_KEY"))
		initializer := setup.NewInitializer(ai.NewGameBuilder(client), store, logger)

		game, counts, err := initializer.CreateGame(ctx, userID, title, description, characterCount)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Game creation error: %v\n", err)
			return
		}
		fmt.Printf("Created game %s: %s\n", game.ID, game.Title)
		fmt.Printf("%d characters, %d locations, %d clues, %d timeline events\n",
			counts.Characters, counts.Locations, counts.Clues, counts.TimelineEvents)
		fmt.Println(game.OpeningSummary)
	},
}

var List = &cobra.Command{
	Use:     "list",
	GroupID: "games",
	Short:   "List games",
	Long:    "Lists the games in the database",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger := newLogger()

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
		games, err := store.Games.List(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "List error: %v\n", err)
			return
		}
		for _, game := range games {
			active := " "
			if game.IsActive {
				active = "*"
			}
			fmt.Printf("%s %s  %-10s %-8s %s\n", active, game.ID, game.UserID, game.Status, game.Title)
		}
	},
}
