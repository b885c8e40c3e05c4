package gamestate

import (
	"context"
	"database/sql"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
	"slices"
	"strings"
)

type CharacterRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewCharacterRepository(dbs *sqlite.Database, logger *slog.Logger) *CharacterRepository {
	return &CharacterRepository{
		dbs:    dbs,
		logger: logger.With("source", "CharacterRepository"),
	}
}

const characterColumns = `id, game_id, name, description, personality, lie_policy, is_killer,
is_alive, is_victim, secrets, relationships, observations, metadata`

func (r *CharacterRepository) Insert(ctx context.Context, character *models.Character) error {
	stmt := `INSERT INTO characters (game_id, name, description, personality, lie_policy, is_killer,
is_alive, is_victim, secrets, relationships, observations, metadata)
VALUES (:game_id, :name, :description, :personality, :lie_policy, :is_killer,
:is_alive, :is_victim, :secrets, :relationships, :observations, :metadata)`
	result, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, character)
	if err != nil {
		return errors.Wrap(err, "insert character",
			slog.String("game_id", character.GameID), slog.String("name", character.Name))
	}
	if character.ID, err = result.LastInsertId(); err != nil {
		return errors.Wrap(err, "last insert id")
	}
	return nil
}

func (r *CharacterRepository) ListByGame(ctx context.Context, gameID string) ([]models.Character, error) {
	var characters []models.Character
	stmt := `SELECT ` + characterColumns + ` FROM characters WHERE game_id = ? ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &characters, stmt, gameID); err != nil {
		return nil, errors.Wrap(err, "list characters", slog.String("game_id", gameID))
	}
	return characters, nil
}

func (r *CharacterRepository) GetByName(ctx context.Context, gameID, name string) (*models.Character, error) {
	var character models.Character
	stmt := `SELECT ` + characterColumns + ` FROM characters WHERE game_id = ? AND name = ? COLLATE NOCASE`
	if err := r.dbs.ReadOnly.GetContext(ctx, &character, stmt, gameID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get character", slog.String("name", name))
		}
		return nil, errors.Wrap(err, "get character", slog.String("name", name))
	}
	return &character, nil
}

// Search finds characters by partial name match so that typos and first names still resolve.
// An exact match wins outright; otherwise substring and name-part matches are returned in
// cast order.
func (r *CharacterRepository) Search(ctx context.Context, gameID, term string) ([]models.Character, error) {
	characters, err := r.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(term))
	if search == "" {
		return nil, nil
	}

	var matches []models.Character
	for _, character := range characters {
		name := strings.ToLower(character.Name)
		if search == name {
			return []models.Character{character}, nil
		}
		if strings.Contains(name, search) {
			matches = append(matches, character)
			continue
		}
		nameParts := strings.Fields(name)
		for _, searchPart := range strings.Fields(search) {
			searchPart = strings.Trim(searchPart, ".,;:!?'\"")
			if searchPart == "" {
				continue
			}
			if slices.ContainsFunc(nameParts, func(namePart string) bool {
				return strings.Contains(namePart, searchPart)
			}) {
				matches = append(matches, character)
				break
			}
		}
	}
	return matches, nil
}

// SetImageURL records a generated portrait URL in the character's metadata.
func (r *CharacterRepository) SetImageURL(ctx context.Context, id int64, url string) error {
	stmt := `UPDATE characters SET metadata = json_set(metadata, '$.image_url', ?) WHERE id = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, url, id); err != nil {
		return errors.Wrap(err, "set character image url", slog.Int64("id", id))
	}
	return nil
}
