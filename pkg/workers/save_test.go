package workers

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepository fails the first failures saves and accepts the rest.
type flakyRepository struct {
	mu       sync.Mutex
	failures int
	attempts int
	saved    []types.GameSummary
}

func (r *flakyRepository) Close(ctx context.Context) error { return nil }

func (r *flakyRepository) SaveGameSummary(ctx context.Context, summary types.GameSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts <= r.failures {
		return fmt.Errorf("repository offline")
	}
	r.saved = append(r.saved, summary)
	return nil
}

func (r *flakyRepository) ListGameSummaries(ctx context.Context, limit int) ([]types.GameSummary, error) {
	return nil, nil
}

func (r *flakyRepository) GetGameSummary(ctx context.Context, gameID string) (*types.GameSummary, error) {
	return nil, nil
}

func (r *flakyRepository) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *flakyRepository) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

type saveRig struct {
	repo      *flakyRepository
	summaries chan types.GameSummary
	journals  chan journal.Game
	worker    *SaveGameWorker
	done      chan struct{}
}

func newSaveRig(t *testing.T, failures int, journalDir string) *saveRig {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := &saveRig{
		repo:      &flakyRepository{failures: failures},
		summaries: make(chan types.GameSummary, 4),
		journals:  make(chan journal.Game, 4),
		done:      make(chan struct{}),
	}
	r.worker = NewSaveGameWorker(NewSaveGameWorkerOptions{
		Repository:   r.repo,
		Summaries:    r.summaries,
		Journals:     r.journals,
		JournalDir:   journalDir,
		RetryBackoff: time.Millisecond,
	})
	go func() {
		r.worker.Start(ctx)
		close(r.done)
	}()
	return r
}

func finishedGame(gameID string) types.GameSummary {
	finished := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	return types.GameSummary{
		GameID:     gameID,
		StartedAt:  finished.Add(-10 * time.Minute),
		FinishedAt: finished,
		Duration:   10 * time.Minute,
		ScoreRed:   5,
		ScoreBlue:  3,
		Periods:    3,
		Winner:     types.TeamRed,
	}
}

func TestSaveGameWorker_SavesSummary(t *testing.T) {
	rig := newSaveRig(t, 0, "")

	rig.summaries <- finishedGame("game-1")

	waitFor(t, func() bool { return rig.repo.savedCount() == 1 })
	assert.Equal(t, 1, rig.repo.attemptCount())
	assert.Equal(t, "game-1", rig.repo.saved[0].GameID)
	assert.Equal(t, uint64(1), rig.worker.Stats().SummariesSaved)
}

func TestSaveGameWorker_RetriesFailedSaves(t *testing.T) {
	rig := newSaveRig(t, 2, "")

	rig.summaries <- finishedGame("game-2")

	waitFor(t, func() bool { return rig.repo.savedCount() == 1 })
	assert.Equal(t, 3, rig.repo.attemptCount())

	stats := rig.worker.Stats()
	assert.Equal(t, uint64(1), stats.SummariesSaved)
	assert.Equal(t, uint64(0), stats.SummariesLost)
}

func TestSaveGameWorker_DropsSummaryAfterFinalAttempt(t *testing.T) {
	rig := newSaveRig(t, 10, "")

	rig.summaries <- finishedGame("game-3")

	waitFor(t, func() bool { return rig.worker.Stats().SummariesLost == 1 })
	assert.Equal(t, 3, rig.repo.attemptCount())
	assert.Equal(t, 0, rig.repo.savedCount())
	assert.Equal(t, uint64(0), rig.worker.Stats().SummariesSaved)
}

func TestSaveGameWorker_LaterSummariesSurviveADrop(t *testing.T) {
	rig := newSaveRig(t, 3, "")

	rig.summaries <- finishedGame("game-4")
	rig.summaries <- finishedGame("game-5")

	waitFor(t, func() bool { return rig.repo.savedCount() == 1 })
	assert.Equal(t, "game-5", rig.repo.saved[0].GameID)

	stats := rig.worker.Stats()
	assert.Equal(t, uint64(1), stats.SummariesLost)
	assert.Equal(t, uint64(1), stats.SummariesSaved)
}

func TestSaveGameWorker_WritesJournals(t *testing.T) {
	dir := t.TempDir()
	rig := newSaveRig(t, 0, dir)

	at := time.Date(2025, 3, 1, 19, 5, 0, 0, time.UTC)
	rig.journals <- journal.Game{
		GameID: "game-6",
		Entries: []journal.Entry{
			{At: at, Type: journal.EntryPhase, Period: 1},
			{At: at.Add(30 * time.Second), Type: journal.EntryGoal, Team: types.TeamRed, Points: 2, Score: types.ScorePair{Red: 2}},
		},
	}

	waitFor(t, func() bool { return rig.worker.Stats().JournalsWritten == 1 })

	entries, err := journal.Read(filepath.Join(dir, "game-6.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, journal.EntryPhase, entries[0].Type)
	assert.Equal(t, journal.EntryGoal, entries[1].Type)
	assert.Equal(t, types.TeamRed, entries[1].Team)
	assert.Equal(t, 2, entries[1].Points)
}

func TestSaveGameWorker_SkipsJournalsWithoutDir(t *testing.T) {
	rig := newSaveRig(t, 0, "")

	rig.journals <- journal.Game{GameID: "game-7"}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(0), rig.worker.Stats().JournalsWritten)
}

func TestSaveGameWorker_AbandonsRetryOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	repo := &flakyRepository{failures: 10}
	summaries := make(chan types.GameSummary, 1)
	worker := NewSaveGameWorker(NewSaveGameWorkerOptions{
		Repository:   repo,
		Summaries:    summaries,
		Journals:     make(chan journal.Game),
		RetryBackoff: 10 * time.Second,
	})

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	summaries <- finishedGame("game-8")
	waitFor(t, func() bool { return repo.attemptCount() == 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop during retry backoff")
	}

	// Shutdown abandons the retry without burning the remaining
	// attempts or counting the summary as lost.
	assert.Equal(t, 1, repo.attemptCount())
	assert.Equal(t, uint64(0), worker.Stats().SummariesLost)
}
