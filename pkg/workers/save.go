package workers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/journal"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/repositories"
)

const (
	// saveAttempts bounds how often a summary save is retried before
	// the summary is dropped.
	saveAttempts = 3
	// defaultRetryBackoff is the base delay between save attempts; it
	// grows linearly with the attempt number.
	defaultRetryBackoff = 250 * time.Millisecond
)

// SaveGameWorker persists finished games: summaries go to the
// repository with bounded retries, journals go to compressed files on
// disk. Neither path ever blocks the engine; a summary that cannot be
// saved after the last attempt is dropped with an error log.
type SaveGameWorker struct {
	repository repositories.Repository
	summaries  <-chan types.GameSummary
	journals   <-chan journal.Game
	journalDir string
	backoff    time.Duration

	summariesSaved  atomic.Uint64
	summariesLost   atomic.Uint64
	journalsWritten atomic.Uint64
}

type NewSaveGameWorkerOptions struct {
	Repository repositories.Repository
	Summaries  <-chan types.GameSummary
	Journals   <-chan journal.Game
	// JournalDir is where finished game journals are written. Empty
	// disables journal persistence.
	JournalDir string
	// RetryBackoff overrides the base retry delay. Zero uses the default.
	RetryBackoff time.Duration
}

func NewSaveGameWorker(opts NewSaveGameWorkerOptions) *SaveGameWorker {
	backoff := opts.RetryBackoff
	if backoff == 0 {
		backoff = defaultRetryBackoff
	}
	return &SaveGameWorker{
		repository: opts.Repository,
		summaries:  opts.Summaries,
		journals:   opts.Journals,
		journalDir: opts.JournalDir,
		backoff:    backoff,
	}
}

func (w *SaveGameWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case summary := <-w.summaries:
			w.saveSummary(ctx, summary)
		case g := <-w.journals:
			w.writeJournal(g)
		}
	}
}

func (w *SaveGameWorker) saveSummary(ctx context.Context, summary types.GameSummary) {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		err = w.repository.SaveGameSummary(ctx, summary)
		if err == nil {
			w.summariesSaved.Add(1)
			log.Info("Saved summary for game %s", summary.GameID)
			return
		}
		log.Warn("Failed to save summary for game %s (attempt %d/%d): %v",
			summary.GameID, attempt, saveAttempts, err)
		if attempt == saveAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * w.backoff):
		}
	}
	w.summariesLost.Add(1)
	log.Error("Dropping summary for game %s: %v", summary.GameID, err)
}

func (w *SaveGameWorker) writeJournal(g journal.Game) {
	if w.journalDir == "" {
		return
	}
	path, err := journal.Write(w.journalDir, g)
	if err != nil {
		log.Error("Failed to write journal for game %s: %v", g.GameID, err)
		return
	}
	w.journalsWritten.Add(1)
	log.Info("Wrote journal for game %s to %s", g.GameID, path)
}

// SaveGameWorkerStats counts persistence outcomes for the stats
// endpoint.
type SaveGameWorkerStats struct {
	SummariesSaved  uint64 `json:"summaries_saved"`
	SummariesLost   uint64 `json:"summaries_lost"`
	JournalsWritten uint64 `json:"journals_written"`
}

func (w *SaveGameWorker) Stats() SaveGameWorkerStats {
	return SaveGameWorkerStats{
		SummariesSaved:  w.summariesSaved.Load(),
		SummariesLost:   w.summariesLost.Load(),
		JournalsWritten: w.journalsWritten.Load(),
	}
}
