package world

import "go.uber.org/zap"

type Phase uint8

const (
	PhaseStopped Phase = iota
	PhaseCountdown
	PhasePlaying
	PhaseSuddenDeath
	PhaseRoundEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"

	case PhaseCountdown:
		return "countdown"

	case PhasePlaying:
		return "playing"

	case PhaseSuddenDeath:
		return "sudden_death"

	case PhaseRoundEnd:
		return "round_end"

	default:
		return "unknown"
	}
}

// Active phases run movement, scoring and collisions
func (p Phase) Active() bool {
	return p == PhasePlaying || p == PhaseSuddenDeath
}

// AcceptsSpawns reports whether a spawn request may create an entity right
// away. Every other phase queues it.
func (p Phase) AcceptsSpawns() bool {
	return p == PhasePlaying
}

// AcceptsFormations gates SpawnMultiple, which places in both active phases
func (p Phase) AcceptsFormations() bool {
	return p.Active()
}

// StartRound and Stop are legal from anywhere, so countdown and stopped
// appear in every row.
var transitions = map[Phase][]Phase{
	PhaseStopped:     {PhaseStopped, PhaseCountdown},
	PhaseCountdown:   {PhaseStopped, PhaseCountdown, PhasePlaying, PhaseSuddenDeath},
	PhasePlaying:     {PhaseStopped, PhaseCountdown, PhaseRoundEnd},
	PhaseSuddenDeath: {PhaseStopped, PhaseCountdown, PhaseRoundEnd},
	PhaseRoundEnd:    {PhaseStopped, PhaseCountdown},
}

func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// setPhase applies a transition. Caller holds mu.
func (w *World) setPhase(to Phase) bool {
	if !CanTransition(w.phase, to) {
		w.log.DPanic("illegal phase transition",
			zap.Stringer("from", w.phase),
			zap.Stringer("to", to))
		return false
	}

	if w.phase != to {
		w.log.Debug("phase", zap.Stringer("from", w.phase), zap.Stringer("to", to))
	}
	w.phase = to
	return true
}
