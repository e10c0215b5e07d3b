package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqliteMigrations = "../../migrations/sqlite"

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := NewSQLiteRepository(ctx, filepath.Join(t.TempDir(), "slapshot.db"), sqliteMigrations)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repo.Close(ctx)
	})
	return repo
}

// testSummary builds a summary with millisecond-precision UTC times,
// matching what the store can represent.
func testSummary(gameID string, finishedAt time.Time) types.GameSummary {
	started := finishedAt.Add(-11 * time.Minute)
	return types.GameSummary{
		GameID:       gameID,
		StartedAt:    started,
		FinishedAt:   finishedAt,
		Duration:     finishedAt.Sub(started),
		ScoreRed:     5,
		ScoreBlue:    3,
		Periods:      3,
		Winner:       types.TeamRed,
		ComboCount:   2,
		PowerUpCount: 4,
		GoalEvents: []types.GoalEvent{
			{Team: types.TeamRed, Period: 1, Phase: types.PhaseInPeriod, Points: 2,
				ClockRemaining: 90 * time.Second, At: started.Add(90 * time.Second)},
			{Team: types.TeamBlue, Period: 2, Phase: types.PhaseInPeriod, Points: 1,
				ClockRemaining: 30 * time.Second, At: started.Add(5 * time.Minute)},
			{Team: types.TeamRed, Period: 3, Phase: types.PhaseInPeriod, Points: 2,
				ClockRemaining: 12 * time.Second, At: started.Add(10 * time.Minute)},
		},
	}
}

func TestSQLiteRepository_SaveAndGetRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	want := testSummary("game-1", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))

	require.NoError(t, repo.SaveGameSummary(ctx, want))
	got, err := repo.GetGameSummary(ctx, "game-1")

	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestSQLiteRepository_GetUnknownGameIsNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetGameSummary(context.Background(), "no-such-game")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLiteRepository_ListReturnsNewestFirstWithoutGoals(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	for i, id := range []string{"game-1", "game-2", "game-3"} {
		require.NoError(t, repo.SaveGameSummary(ctx, testSummary(id, base.Add(time.Duration(i)*time.Hour))))
	}

	summaries, err := repo.ListGameSummaries(ctx, 2)

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "game-3", summaries[0].GameID)
	assert.Equal(t, "game-2", summaries[1].GameID)
	assert.Empty(t, summaries[0].GoalEvents, "list omits the per-goal detail")
}

func TestSQLiteRepository_SaveIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	summary := testSummary("game-1", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveGameSummary(ctx, summary))

	summary.ScoreRed = 6
	require.NoError(t, repo.SaveGameSummary(ctx, summary))

	got, err := repo.GetGameSummary(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 6, got.ScoreRed)
	assert.Len(t, got.GoalEvents, 3, "goals are rewritten, not duplicated")

	summaries, err := repo.ListGameSummaries(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "slapshot.db")
	summary := testSummary("game-1", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))

	repo, err := NewSQLiteRepository(ctx, path, sqliteMigrations)
	require.NoError(t, err)
	require.NoError(t, repo.SaveGameSummary(ctx, summary))
	require.NoError(t, repo.Close(ctx))

	// Migrations are idempotent across reopen.
	reopened, err := NewSQLiteRepository(ctx, path, sqliteMigrations)
	require.NoError(t, err)
	defer func() {
		_ = reopened.Close(ctx)
	}()

	got, err := reopened.GetGameSummary(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, summary, *got)
}
