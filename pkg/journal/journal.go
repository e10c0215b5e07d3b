// Package journal writes per-game event journals as zstd-compressed
// JSON lines, one file per game. Journals are best-effort diagnostics:
// a write failure is logged and the game result is unaffected.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/klauspost/compress/zstd"
)

// Entry types recorded over a game's life.
const (
	EntryGoal    = "goal"
	EntryPowerUp = "power_up"
	EntryDisplay = "display"
	EntryPhase   = "phase"
	EntryCommand = "command"
	EntryAdjust  = "adjust"
)

// Entry is one journaled game event. Unused fields are omitted, so a
// phase entry stays as small as it reads.
type Entry struct {
	At     time.Time       `json:"at"`
	Type   string          `json:"type"`
	Team   types.Team      `json:"team,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Points int             `json:"points,omitempty"`
	Streak int             `json:"streak,omitempty"`
	Period int             `json:"period,omitempty"`
	Clock  float64         `json:"clock,omitempty"`
	Score  types.ScorePair `json:"score"`
}

// Game is a completed game's journal, written as one file.
type Game struct {
	GameID  string
	Entries []Entry
}

// Recorder accumulates entries for the running game in memory. The
// engine hands the finished Game to the journal worker at game over,
// so no file I/O ever happens on the tick goroutine.
type Recorder struct {
	gameID  string
	entries []Entry
}

func NewRecorder(gameID string) *Recorder {
	return &Recorder{gameID: gameID}
}

func (r *Recorder) Add(e Entry) {
	r.entries = append(r.entries, e)
}

func (r *Recorder) Len() int {
	return len(r.entries)
}

// Game returns the accumulated journal.
func (r *Recorder) Game() Game {
	return Game{GameID: r.gameID, Entries: r.entries}
}

// Write stores a game journal under dir as <gameID>.jsonl.zst and
// returns the file path.
func Write(dir string, g Game) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create journal directory: %v", err)
	}
	path := filepath.Join(dir, g.GameID+".jsonl.zst")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create journal file: %v", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return "", fmt.Errorf("failed to create zstd writer: %v", err)
	}
	for _, e := range g.Entries {
		b, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("failed to marshal journal entry: %v", err)
		}
		if _, err := zw.Write(append(b, '\n')); err != nil {
			return "", fmt.Errorf("failed to write journal entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to close zstd writer: %v", err)
	}
	return path, nil
}

// Read loads a journal file written by Write.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %v", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer zr.Close()

	var entries []Entry
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journal entry: %v", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal file: %v", err)
	}
	return entries, nil
}
