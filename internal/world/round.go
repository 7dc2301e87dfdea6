package world

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StartRound resets the arena and begins the pre-round countdown. Anything
// still scheduled by the previous round is invalidated.
func (w *World) StartRound() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.startRound()
}

func (w *World) startRound() {
	w.round++
	if n := w.sched.dropStale(w.round); n > 0 {
		w.log.Debug("dropped deferred actions from previous round", zap.Int("count", n))
	}

	w.setPhase(PhaseCountdown)
	w.countdownValue = w.rules.CountdownFrom
	w.countdownTimer = 0
	w.timeRemaining = w.rules.RoundSeconds
	w.autoSpawnTimer = 0
	w.suddenNext = false
	w.endPending = false
	w.scoreA, w.scoreB = 0, 0
	w.clearEntities()
	w.mega = nil

	w.log.Info("round starting", zap.Uint64("round", w.round))
}

// Stop freezes the arena until the next StartRound
func (w *World) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.round++
	w.sched.dropStale(w.round)
	w.setPhase(PhaseStopped)
	w.clearEntities()
	w.mega = nil
	w.suddenNext = false
	w.endPending = false
	w.log.Info("arena stopped")
}

func (w *World) tickCountdown(dt float64) {
	w.countdownTimer += dt
	if w.countdownTimer < 1 {
		return
	}
	w.countdownTimer = 0
	w.countdownValue--

	if w.countdownValue <= 0 {
		w.beginGameplay()
	}
}

func (w *World) beginGameplay() {
	if w.suddenNext {
		w.suddenNext = false
		w.setPhase(PhaseSuddenDeath)
		w.cue(CueOvertime)
		w.log.Info("sudden death, first to score wins")
	} else {
		w.setPhase(PhasePlaying)
		w.log.Info("gameplay active")
	}
	w.flushSpawnQueue()
}

// timerExpired settles a timed round: a strict leader wins at once, a tie
// walks through the banners into a sudden-death countdown.
func (w *World) timerExpired() {
	w.clearEntities()

	if w.scoreA != w.scoreB {
		w.endRound()
		return
	}

	w.setPhase(PhaseRoundEnd)
	w.banner(BannerEvent, "TIE GAME", w.rules.TieBannerDelay)
	w.log.Info("round tied, heading into sudden death",
		zap.Int("score", w.scoreA))

	w.after(w.rules.TieBannerDelay, "sudden-death-banner", func() {
		w.banner(BannerEvent, "SUDDEN DEATH!", w.rules.SuddenBannerDelay)

		w.after(w.rules.SuddenBannerDelay, "sudden-death-countdown", func() {
			w.suddenNext = true
			w.setPhase(PhaseCountdown)
			w.countdownValue = w.rules.CountdownFrom
			w.countdownTimer = 0
		})
	})
}

// suddenDeathDecided runs right after a goal in sudden death. A lead ends
// the round after a short pause so the last score can render.
func (w *World) suddenDeathDecided() bool {
	if w.scoreA == w.scoreB {
		w.log.Info("sudden death still tied", zap.Int("score", w.scoreA))
		return false
	}
	if w.endPending {
		return true
	}

	w.endPending = true
	w.clearEntities()
	w.log.Info("sudden death decided",
		zap.Int("scoreA", w.scoreA),
		zap.Int("scoreB", w.scoreB))
	w.after(w.rules.SuddenEndDelay, "sudden-death-end", w.endRound)
	return true
}

// Winner returns the strict leader of the given scores, TeamNone on a tie
func Winner(a, b int) Team {
	switch {
	case a > b:
		return TeamA

	case b > a:
		return TeamB

	default:
		return TeamNone
	}
}

func (w *World) teamName(t Team) string {
	switch t {
	case TeamA:
		return w.rules.TeamNames[0]

	case TeamB:
		return w.rules.TeamNames[1]

	default:
		return t.String()
	}
}

func (w *World) endRound() {
	w.setPhase(PhaseRoundEnd)
	w.endPending = false
	w.clearEntities()

	winner := Winner(w.scoreA, w.scoreB)
	w.log.Info("round ended",
		zap.Stringer("winner", winner),
		zap.Int("scoreA", w.scoreA),
		zap.Int("scoreB", w.scoreB))

	if winner != TeamNone {
		if winner == TeamA {
			w.tally.WinsA++
		} else {
			w.tally.WinsB++
		}
		w.tally.GamesPlayed++

		if w.tally.GamesPlayed >= w.rules.WinResetAfter {
			w.log.Info("win counters reset", zap.Int("games", w.tally.GamesPlayed))
			w.tally = Tally{}
		}
	}

	w.cue(CueVictory)

	if winner != TeamNone {
		text := fmt.Sprintf("ROUND OVER!\n%s WIN!", strings.ToUpper(w.teamName(winner))+"S")
		w.banner(BannerEvent, text, w.rules.BannerSeconds)
	}

	w.after(w.rules.RoundRestartDelay, "auto-restart", w.startRound)
}
