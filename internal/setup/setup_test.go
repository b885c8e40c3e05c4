package setup_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/setup"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/myrjola/whodunnit/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func validBundle() *models.GameSetup {
	return &models.GameSetup{
		Title:          "The Clockmaker's Secret",
		Description:    "A horologist lies dead in his workshop.",
		OpeningSummary: "The body was found at dawn among stopped clocks.",
		Characters: []models.Character{
			{Name: "Elias Thorn", Description: "the victim", LiePolicy: models.LiePolicyHonest,
				IsVictim: true, IsAlive: false},
			{Name: "Mira Voss", Description: "the apprentice", LiePolicy: models.LiePolicyDeceptive,
				IsKiller: true, IsAlive: true},
			{Name: "Mrs. Hart", Description: "the housekeeper", LiePolicy: models.LiePolicyEvasive,
				IsAlive: true},
		},
		Locations: []models.Location{
			{Name: "Workshop", Description: "cluttered benches", IsAccessible: true},
			{Name: "Kitchen", Description: "smells of bread", IsAccessible: true},
		},
		Clues: []models.Clue{
			{Title: "Stopped Watch", Description: "frozen at 3:12", LocationID: "Workshop",
				DiscoveryMethod: models.DiscoveryMethodInvestigation, SignificanceLevel: 5},
		},
		TimelineEvents: []models.TimelineEvent{
			{EventTime: "2026-01-01T03:12:00Z", EventDescription: "the murder",
				LocationID: "Workshop", EventType: models.EventTypeMurder,
				CharacterIDs: models.StringList{"Elias Thorn", "Mira Voss"}},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*models.GameSetup)
		wantErr bool
	}{
		{
			name:   "valid bundle",
			mutate: func(*models.GameSetup) {},
		},
		{
			name: "no killer",
			mutate: func(s *models.GameSetup) {
				s.Characters[1].IsKiller = false
			},
			wantErr: true,
		},
		{
			name: "two killers",
			mutate: func(s *models.GameSetup) {
				s.Characters[2].IsKiller = true
			},
			wantErr: true,
		},
		{
			name: "killer is the victim",
			mutate: func(s *models.GameSetup) {
				s.Characters[1].IsKiller = false
				s.Characters[0].IsKiller = true
			},
			wantErr: true,
		},
		{
			name: "living victim",
			mutate: func(s *models.GameSetup) {
				s.Characters[0].IsAlive = true
			},
			wantErr: true,
		},
		{
			name: "dead killer",
			mutate: func(s *models.GameSetup) {
				s.Characters[1].IsAlive = false
			},
			wantErr: true,
		},
		{
			name: "duplicate character name",
			mutate: func(s *models.GameSetup) {
				s.Characters[2].Name = "mira voss"
			},
			wantErr: true,
		},
		{
			name: "invalid lie policy",
			mutate: func(s *models.GameSetup) {
				s.Characters[2].LiePolicy = "sarcastic"
			},
			wantErr: true,
		},
		{
			name: "duplicate clue title",
			mutate: func(s *models.GameSetup) {
				s.Clues = append(s.Clues, s.Clues[0])
			},
			wantErr: true,
		},
		{
			name: "significance out of range",
			mutate: func(s *models.GameSetup) {
				s.Clues[0].SignificanceLevel = 9
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := validBundle()
			tt.mutate(bundle)
			err := setup.Validate(bundle)
			if tt.wantErr {
				require.ErrorIs(t, err, setup.ErrInvalidSetup)
				return
			}
			require.NoError(t, err)
		})
	}
}

type fixedBuilder struct {
	bundle *models.GameSetup
}

func (b fixedBuilder) BuildGame(context.Context, string, string, int) (*models.GameSetup, error) {
	return b.bundle, nil
}

func TestInitializer_CreateGame(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	store := gamestate.NewStore(dbs, logger)
	initializer := setup.NewInitializer(fixedBuilder{bundle: validBundle()}, store, logger)
	ctx := context.Background()

	first, counts, err := initializer.CreateGame(ctx, "sherlock", "The Clockmaker's Secret", "a workshop", 3)
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.True(t, first.IsActive)
	require.Equal(t, models.GameStatusActive, first.Status)
	require.Equal(t, 3, counts.Characters)

	characters, err := store.Characters.ListByGame(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, characters, 3)

	second, _, err := initializer.CreateGame(ctx, "sherlock", "The Clockmaker's Secret", "a workshop", 3)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	previous, err := store.Games.Get(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, previous.IsActive, "creating a game deactivates the previous one")
}

func TestInitializer_CreateGame_rejectsInvalidBundle(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	store := gamestate.NewStore(dbs, logger)

	bundle := validBundle()
	bundle.Characters[1].IsKiller = false
	initializer := setup.NewInitializer(fixedBuilder{bundle: bundle}, store, logger)

	_, _, err = initializer.CreateGame(context.Background(), "sherlock", "t", "d", 3)
	require.ErrorIs(t, err, setup.ErrInvalidSetup)

	games, err := store.Games.ListByUser(context.Background(), "sherlock")
	require.NoError(t, err)
	require.Empty(t, games, "a rejected bundle persists nothing")
}
