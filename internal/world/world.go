package world

import (
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// World is the whole simulation aggregate. Every field below mu is guarded
// by it; invariants span several fields at once so there is no finer
// locking.
type World struct {
	mu    sync.RWMutex
	rules Rules
	log   *zap.Logger
	rng   *rand.Rand

	phase          Phase
	round          uint64 // generation, bumped on every restart
	clock          float64
	countdownValue int
	countdownTimer float64
	timeRemaining  float64
	autoSpawnTimer float64
	suddenNext     bool // the running countdown leads into sudden death
	endPending     bool // sudden death already decided, endRound is scheduled

	scoreA, scoreB int
	tally          Tally

	entities   []*Entity
	spawnQueue []SpawnRequest
	nextID     uint64

	mega *MegaEvent

	sched   scheduler
	signals []Signal
	frame   uint64
}

// Tally counts strict wins across rounds
type Tally struct {
	WinsA       int `json:"winsA" msgpack:"winsA"`
	WinsB       int `json:"winsB" msgpack:"winsB"`
	GamesPlayed int `json:"gamesPlayed" msgpack:"gamesPlayed"`
}

func New(rules Rules, log *zap.Logger, rng *rand.Rand) *World {
	if log == nil {
		log = zap.NewNop()
	}

	return &World{
		rules:         rules,
		log:           log.Named("world"),
		rng:           rng,
		phase:         PhaseStopped,
		timeRemaining: rules.RoundSeconds,
	}
}

func (w *World) Rules() Rules {
	return w.rules
}

func (w *World) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.phase
}

func (w *World) Scores() (a, b int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.scoreA, w.scoreB
}

func (w *World) Tally() Tally {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tally
}

func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// after schedules fn on the current round generation. Caller holds mu.
func (w *World) after(delay float64, name string, fn func()) TaskID {
	return w.sched.add(w.clock+delay, w.round, name, fn)
}

// Cancel drops a deferred action that has not fired yet
func (w *World) Cancel(id TaskID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sched.cancel(id)
}

func (w *World) runDue() {
	for _, t := range w.sched.due(w.clock) {
		if t.gen != w.round {
			w.log.Debug("stale deferred action skipped",
				zap.String("task", t.name),
				zap.Uint64("gen", t.gen),
				zap.Uint64("live", w.round))
			continue
		}
		t.fn()
	}
}

// Update advances the simulation by dt seconds of wall-clock time.
// Deferred actions that come due fire at the end of the frame.
func (w *World) Update(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dt < 0 {
		dt = 0
	}
	w.frame++
	w.clock += dt

	w.step(dt)
	w.runDue()
}

func (w *World) step(dt float64) {
	switch w.phase {
	case PhaseStopped, PhaseRoundEnd:
		return

	case PhaseCountdown:
		w.tickCountdown(dt)
		return
	}

	if w.phase == PhasePlaying {
		w.timeRemaining -= dt

		w.autoSpawnTimer += dt
		if w.autoSpawnTimer >= w.rules.AutoSpawnEvery {
			w.autoSpawnTimer = 0
			lo, hi := w.rules.AutoSpawnMarginY, w.rules.Height-w.rules.AutoSpawnMarginY
			w.spawn(SpawnRequest{Team: TeamA, Size: SizeSmall, PreferredY: AtY(RandFloat(w.rng, lo, hi))}, false)
			w.spawn(SpawnRequest{Team: TeamB, Size: SizeSmall, PreferredY: AtY(RandFloat(w.rng, lo, hi))}, false)
		}

		if w.timeRemaining <= 0 {
			w.timerExpired()
			return
		}
	}

	w.tickMegaTimer(dt)

	if w.updateEntities(dt) {
		return
	}
	w.resolveCollisions()

	w.rollFrenzy()
	w.updateMeteor()
}

// updateEntities moves, bounds and scores every entity. It reports true
// when a sudden-death goal decided the round and the frame must stop.
func (w *World) updateEntities(dt float64) bool {
	r := &w.rules

	for i := len(w.entities) - 1; i >= 0; i-- {
		e := w.entities[i]

		factor := 1.0
		if e.Large() {
			factor = r.LargeMoveFactor
		}
		e.X += e.VX * factor
		e.Y += e.VY * factor

		if e.Y-e.Radius < 0 {
			e.Y = e.Radius
			e.VY = 0
		} else if e.Y+e.Radius > r.Height {
			e.Y = r.Height - e.Radius
			e.VY = 0
		}

		if w.reachedEndZone(e) {
			w.removeAt(i)
			w.awardGoal(e)
			if w.phase == PhaseSuddenDeath && w.suddenDeathDecided() {
				return true
			}
			continue
		}

		if e.Large() && e.Wounded() {
			e.DamageBlinkTimer += dt
			if e.DamageBlinkTimer > r.BlinkPeriod {
				e.DamageBlinkTimer = 0
			}
		}
	}
	return false
}

func (w *World) reachedEndZone(e *Entity) bool {
	switch e.Team {
	case TeamA:
		return e.X+e.Radius >= w.rules.Width-w.rules.EndZoneWidth

	case TeamB:
		return e.X-e.Radius <= w.rules.EndZoneWidth

	default:
		return false
	}
}

func (w *World) awardGoal(e *Entity) {
	points := e.Size.Points()
	if w.megaActive(MegaScoreDouble) {
		points *= 2
	}

	if e.Team == TeamA {
		w.scoreA += points
	} else {
		w.scoreB += points
	}
	w.cue(CueGoal)
}

// resolveCollisions applies simultaneous damage to every overlapping pair
// of opponents, then removes the dead highest index first. Caller holds mu.
func (w *World) resolveCollisions() {
	dead := make(map[int]bool)

	for i := 0; i < len(w.entities); i++ {
		if dead[i] {
			continue
		}
		e1 := w.entities[i]

		for j := i + 1; j < len(w.entities); j++ {
			if dead[j] {
				continue
			}
			e2 := w.entities[j]

			if e1.Team == e2.Team || !CirclesOverlap(e1.X, e1.Y, e1.Radius, e2.X, e2.Y, e2.Radius) {
				continue
			}

			d1, d2 := e1.Size.Damage(), e2.Size.Damage()
			e1.HP -= d2
			e2.HP -= d1
			w.cue(CueCollision)

			if e1.HP <= 0 {
				dead[i] = true
			}
			if e2.HP <= 0 {
				dead[j] = true
			}

			if e1.Large() && e1.Wounded() {
				e1.DamageBlinkTimer = 0
			}
			if e2.Large() && e2.Wounded() {
				e2.DamageBlinkTimer = 0
			}
		}
	}

	if len(dead) == 0 {
		return
	}

	idx := make([]int, 0, len(dead))
	for i := range dead {
		idx = append(idx, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))
	for _, i := range idx {
		w.removeAt(i)
	}
}

// removeAt deletes one entity keeping order. Caller holds mu.
func (w *World) removeAt(i int) {
	if i < 0 || i >= len(w.entities) {
		w.log.DPanic("entity removal out of range",
			zap.Int("index", i),
			zap.Int("len", len(w.entities)))
		return
	}
	copy(w.entities[i:], w.entities[i+1:])
	w.entities[len(w.entities)-1] = nil
	w.entities = w.entities[:len(w.entities)-1]
}

func (w *World) clearEntities() {
	for i := range w.entities {
		w.entities[i] = nil
	}
	w.entities = w.entities[:0]
}
