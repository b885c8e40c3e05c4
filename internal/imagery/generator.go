// Package imagery illustrates generated games with portraits, scenes and evidence photos.
// Generation runs in the background after a game is created and failures are tolerated,
// a mystery without pictures is still playable.
package imagery

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/ai"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
)

type Generator struct {
	images ai.ImageCreator
	store  *gamestate.Store
	logger *slog.Logger
}

func NewGenerator(images ai.ImageCreator, store *gamestate.Store, logger *slog.Logger) *Generator {
	return &Generator{
		images: images,
		store:  store,
		logger: logger.With("source", "Generator"),
	}
}

// IllustrateGame renders an image for every character, location and clue of the game and
// stores the URLs in the entities' metadata. Image models reject prompts they consider
// violent, so locations and clues try progressively tamer phrasings before giving up.
func (g *Generator) IllustrateGame(ctx context.Context, gameID string) error {
	game, err := g.store.Games.Get(ctx, gameID)
	if err != nil {
		return errors.Wrap(err, "load game", slog.String("game_id", gameID))
	}
	attr := slog.String("game_id", gameID)

	characters, err := g.store.Characters.ListByGame(ctx, gameID)
	if err != nil {
		return errors.Wrap(err, "load characters", attr)
	}
	for _, character := range characters {
		prompt := fmt.Sprintf(
			"Portrait of %s, %s, realistic style, good lighting, detailed facial features, "+
				"unique appearance, high quality digital art, %s setting",
			character.Name, character.Description, game.Title)
		g.illustrate(ctx, attr, character.Name, []string{prompt}, func(url string) error {
			return g.store.Characters.SetImageURL(ctx, character.ID, url)
		})
	}

	locations, err := g.store.Locations.ListByGame(ctx, gameID)
	if err != nil {
		return errors.Wrap(err, "load locations", attr)
	}
	for _, location := range locations {
		atmosphere := location.Atmosphere
		if atmosphere == "" {
			atmosphere = "mysterious"
		}
		base := fmt.Sprintf("%s, %s, %s atmosphere", location.Name, location.Description, atmosphere)
		prompts := []string{
			base + ", murder mystery setting, dramatic shadows, detailed architecture, " +
				"realistic style, high quality digital art, " + game.Title + " setting",
			base + ", investigation scene, dramatic lighting, detailed architecture, " +
				"realistic style, high quality digital art, " + game.Title + " setting",
			base + ", mysterious location photography, vintage aesthetic, dramatic lighting, " +
				"detailed architecture, high quality digital art, " + game.Title + " setting",
		}
		g.illustrate(ctx, attr, location.Name, prompts, func(url string) error {
			return g.store.Locations.SetImageURL(ctx, location.ID, url)
		})
	}

	clues, err := g.store.Clues.ListByGame(ctx, gameID)
	if err != nil {
		return errors.Wrap(err, "load clues", attr)
	}
	for _, clue := range clues {
		g.illustrate(ctx, attr, clue.Title, cluePrompts(game.Title, &clue), func(url string) error {
			return g.store.Clues.SetImageURL(ctx, clue.ID, url)
		})
	}
	return nil
}

// IllustrateClue re-renders a single clue, looked up by title. Useful when the first
// attempt during game creation produced nothing usable.
func (g *Generator) IllustrateClue(ctx context.Context, gameID, title string) error {
	game, err := g.store.Games.Get(ctx, gameID)
	if err != nil {
		return errors.Wrap(err, "load game", slog.String("game_id", gameID))
	}
	clue, err := g.store.Clues.GetByTitle(ctx, gameID, title)
	if err != nil {
		return errors.Wrap(err, "load clue", slog.String("game_id", gameID), slog.String("title", title))
	}
	g.illustrate(ctx, slog.String("game_id", gameID), clue.Title, cluePrompts(game.Title, clue),
		func(url string) error {
			return g.store.Clues.SetImageURL(ctx, clue.ID, url)
		})
	return nil
}

func cluePrompts(gameTitle string, clue *models.Clue) []string {
	base := fmt.Sprintf("%s, %s", clue.Title, clue.Description)
	return []string{
		base + ", evidence photo, crime scene style, realistic detailed close-up, " +
			"forensic photography style, high quality digital art, " + gameTitle + " setting",
		base + ", investigation documentation, detective scene style, realistic detailed close-up, " +
			"professional photography style, high quality digital art, " + gameTitle + " setting",
		base + ", mysterious object photography, vintage mystery aesthetic, dramatic lighting, " +
			"detailed close-up, high quality digital art, " + gameTitle + " setting",
	}
}

// illustrate tries the prompts in order until one renders, then persists the URL.
func (g *Generator) illustrate(
	ctx context.Context,
	gameAttr slog.Attr,
	subject string,
	prompts []string,
	persist func(url string) error,
) {
	for attempt, prompt := range prompts {
		url, err := g.images.CreateImage(ctx, prompt)
		if err != nil {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "image generation failed", gameAttr,
				slog.String("subject", subject), slog.Int("attempt", attempt+1), errors.SlogError(err))
			continue
		}
		if err := persist(url); err != nil {
			g.logger.LogAttrs(ctx, slog.LevelError, "image url not persisted", gameAttr,
				slog.String("subject", subject), errors.SlogError(err))
			return
		}
		g.logger.LogAttrs(ctx, slog.LevelInfo, "image generated", gameAttr, slog.String("subject", subject))
		return
	}
	g.logger.LogAttrs(ctx, slog.LevelWarn, "no image generated", gameAttr, slog.String("subject", subject))
}
