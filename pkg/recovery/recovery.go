// Package recovery persists a small resumable snapshot of the live
// game so a crashed cabinet can pick a game back up instead of eating
// the players' quarters.
package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/types"
)

// State is the resumable portion of a game. It is deliberately small:
// enough to restore the scoreboard, not the transient event set. The
// config the game was started under rides along, so a resumed game
// finishes under the rules it began with.
type State struct {
	GameID         string          `json:"game_id"`
	Phase          types.Phase     `json:"phase"`
	Period         int             `json:"period"`
	MaxPeriods     int             `json:"max_periods"`
	Score          types.ScorePair `json:"score"`
	ClockRemaining float64         `json:"clock_remaining"`
	IsSuddenDeath  bool            `json:"is_sudden_death"`
	ComboCount     int             `json:"combo_count"`
	PowerUpCount   int             `json:"power_up_count"`
	StartedAt      time.Time       `json:"started_at"`
	SavedAt        time.Time       `json:"saved_at"`
	Config         config.Config   `json:"config"`
}

// Validate rejects states missing the fields a resume depends on.
func (s State) Validate() error {
	if s.GameID == "" {
		return fmt.Errorf("recovery state missing game_id")
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("recovery state has invalid phase %q", s.Phase)
	}
	if s.Period < 1 {
		return fmt.Errorf("recovery state has invalid period %d", s.Period)
	}
	if s.SavedAt.IsZero() {
		return fmt.Errorf("recovery state missing saved_at")
	}
	return nil
}

// ErrNoState is returned by Load when no recovery file exists.
type ErrNoState struct {
}

func (e *ErrNoState) Error() string {
	return "no recovery state"
}

// ErrStaleState is returned by Load when the recovery file is too old
// to resume.
type ErrStaleState struct {
	Age time.Duration
}

func (e *ErrStaleState) Error() string {
	return fmt.Sprintf("recovery state is stale (%.0fs old)", e.Age.Seconds())
}

func IsNoState(err error) bool {
	_, ok := err.(*ErrNoState)
	return ok
}

func IsStaleState(err error) bool {
	_, ok := err.(*ErrStaleState)
	return ok
}

// Store reads and writes the recovery file. Saves go through a temp
// file and an atomic rename, so a crash mid-write never leaves a
// half-written file to choke on at startup.
type Store struct {
	path   string
	maxAge time.Duration
}

// NewStore returns a store writing to path. States older than maxAge
// are refused at load time.
func NewStore(path string, maxAge time.Duration) *Store {
	return &Store{path: path, maxAge: maxAge}
}

// Save writes the state atomically.
func (s *Store) Save(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recovery state: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create recovery directory: %v", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("failed to write recovery temp file: %v", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to rename recovery file: %v", err)
	}
	return nil
}

// Load reads and validates the recovery file. now is the caller's
// clock, so staleness stays testable.
func (s *Store) Load(now time.Time) (*State, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, &ErrNoState{}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery file: %v", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("failed to parse recovery file: %v", err)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if age := now.Sub(st.SavedAt); age > s.maxAge {
		return nil, &ErrStaleState{Age: age}
	}
	return &st, nil
}

// Clear removes the recovery file. Clearing a missing file is a no-op.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove recovery file: %v", err)
	}
	return nil
}
