package types

// Team identifies one side of the table.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Teams lists both teams in display order.
var Teams = []Team{TeamRed, TeamBlue}

func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Phase is the current stage of a game.
type Phase string

const (
	PhaseWarmup       Phase = "warmup"
	PhaseInPeriod     Phase = "in_period"
	PhaseIntermission Phase = "intermission"
	PhaseOvertime     Phase = "overtime"
	PhaseGameOver     Phase = "game_over"
)

// Playing returns true if the game clock is counting down toward
// a phase transition.
func (p Phase) Playing() bool {
	return p == PhaseInPeriod || p == PhaseOvertime
}

func (p Phase) Valid() bool {
	switch p {
	case PhaseWarmup, PhaseInPeriod, PhaseIntermission, PhaseOvertime, PhaseGameOver:
		return true
	}
	return false
}

// Command is an operator command delivered through the event queue.
type Command string

const (
	CommandStart       Command = "start"
	CommandPause       Command = "pause"
	CommandResume      Command = "resume"
	CommandReset       Command = "reset"
	CommandAdjustScore Command = "adjust_score"
)
