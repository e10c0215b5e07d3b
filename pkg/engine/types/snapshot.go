package types

// Snapshot is the immutable game state copy handed to subscribers. The
// JSON shape is a contract with the cabinet display and the web viewer:
// {"score":{"red":0,"blue":0},"period":1,"max_periods":3,"clock":180.0,"active_event":null}
type Snapshot struct {
	Score       ScorePair `json:"score"`
	Period      int       `json:"period"`
	MaxPeriods  int       `json:"max_periods"`
	Clock       float64   `json:"clock"`
	ActiveEvent *string   `json:"active_event"`
}

type ScorePair struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// Copy returns a snapshot that shares nothing with the receiver.
func (s Snapshot) Copy() Snapshot {
	out := s
	if s.ActiveEvent != nil {
		label := *s.ActiveEvent
		out.ActiveEvent = &label
	}
	return out
}

// SnapshotFromState builds a subscriber-safe snapshot from live state.
func SnapshotFromState(s *GameState) Snapshot {
	snap := Snapshot{
		Score: ScorePair{
			Red:  s.Score[TeamRed],
			Blue: s.Score[TeamBlue],
		},
		Period:     s.Period,
		MaxPeriods: s.MaxPeriods,
		Clock:      s.ClockRemaining.Seconds(),
	}
	if ev := s.LatestActiveEvent(); ev != nil {
		label := ev.Label
		snap.ActiveEvent = &label
	}
	return snap
}
