package world

import (
	"math"

	"go.uber.org/zap"
)

type MegaKind uint8

const (
	MegaNone MegaKind = iota
	MegaScoreDouble
	MegaFrenzySpawn
	MegaMeteorSweep
)

// MegaKinds lists the kinds a wild card can roll
var MegaKinds = []MegaKind{MegaScoreDouble, MegaFrenzySpawn, MegaMeteorSweep}

func (k MegaKind) String() string {
	switch k {
	case MegaScoreDouble:
		return "score_double"

	case MegaFrenzySpawn:
		return "frenzy_spawn"

	case MegaMeteorSweep:
		return "meteor_sweep"

	default:
		return "none"
	}
}

func (k MegaKind) banner() string {
	switch k {
	case MegaScoreDouble:
		return "DOUBLE POINTS!"

	case MegaFrenzySpawn:
		return "FRENZY MODE!"

	case MegaMeteorSweep:
		return "METEOR SWEEP!"

	default:
		return ""
	}
}

type TrailPoint struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Alpha float64 `json:"alpha" msgpack:"alpha"`
}

// Meteor is the roaming hazard of a meteor sweep
type Meteor struct {
	X, Y   float64
	VX, VY float64
	Radius float64
	Trail  []TrailPoint
}

type MegaEvent struct {
	Kind      MegaKind
	Remaining float64
	Meteor    *Meteor
}

// ActivateMega starts a timed modifier. A new activation replaces whatever
// was running, payload included.
func (w *World) ActivateMega(kind MegaKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activateMega(kind)
}

// ActivateMegaUnless activates kind unless the arena is in the blocked
// phase. The phase check and the activation share one lock hold.
func (w *World) ActivateMegaUnless(blocked Phase, kind MegaKind) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase == blocked {
		return false
	}
	w.activateMega(kind)
	return true
}

func (w *World) activateMega(kind MegaKind) {
	if kind == MegaNone {
		return
	}

	if w.mega != nil {
		w.log.Info("mega event replaced",
			zap.Stringer("old", w.mega.Kind),
			zap.Stringer("new", kind))
	}

	w.mega = &MegaEvent{Kind: kind, Remaining: w.rules.MegaDuration}
	if kind == MegaMeteorSweep {
		w.mega.Meteor = w.newMeteor()
	}

	w.banner(BannerMega, kind.banner(), w.rules.MegaBannerSeconds)
	w.log.Info("mega event activated", zap.Stringer("kind", kind))
}

func (w *World) deactivateMega() {
	if w.mega == nil {
		return
	}
	w.log.Info("mega event ended", zap.Stringer("kind", w.mega.Kind))
	w.mega = nil
}

func (w *World) megaActive(kind MegaKind) bool {
	return w.mega != nil && w.mega.Kind == kind
}

func (w *World) newMeteor() *Meteor {
	r := &w.rules
	angle := RandFloat(w.rng, math.Pi/6, math.Pi/3)
	return &Meteor{
		X:      r.Width / 2,
		Y:      r.Height / 2,
		VX:     math.Cos(angle) * r.MeteorSpeed,
		VY:     math.Sin(angle) * r.MeteorSpeed,
		Radius: r.MeteorRadius,
		Trail:  make([]TrailPoint, 0, r.MeteorTrailLen+1),
	}
}

// tickMegaTimer counts the active event down. Caller holds mu.
func (w *World) tickMegaTimer(dt float64) {
	if w.mega == nil {
		return
	}
	w.mega.Remaining -= dt
	if w.mega.Remaining <= 0 {
		w.deactivateMega()
	}
}

// rollFrenzy gives frenzy mode its one chance per frame at an extra spawn
func (w *World) rollFrenzy() {
	if !w.megaActive(MegaFrenzySpawn) {
		return
	}
	if w.rng.Float64() >= w.rules.FrenzyChance {
		return
	}

	team := TeamA
	if w.rng.Float64() < 0.5 {
		team = TeamB
	}
	w.spawn(SpawnRequest{Team: team, Size: SizeSmall}, false)
}

// updateMeteor moves the hazard and wipes out whatever it touches, no hp
// involved. Caller holds mu.
func (w *World) updateMeteor() {
	if !w.megaActive(MegaMeteorSweep) || w.mega.Meteor == nil {
		return
	}
	m := w.mega.Meteor
	r := &w.rules

	m.X += m.VX
	m.Y += m.VY

	if m.X-m.Radius <= 0 || m.X+m.Radius >= r.Width {
		m.VX = -m.VX
		m.X = Clamp(m.X, m.Radius, r.Width-m.Radius)
	}
	if m.Y-m.Radius <= 0 || m.Y+m.Radius >= r.Height {
		m.VY = -m.VY
		m.Y = Clamp(m.Y, m.Radius, r.Height-m.Radius)
	}

	m.Trail = append(m.Trail, TrailPoint{X: m.X, Y: m.Y, Alpha: 1})
	if len(m.Trail) > r.MeteorTrailLen {
		m.Trail = append(m.Trail[:0], m.Trail[1:]...)
	}
	n := float64(len(m.Trail))
	for i := range m.Trail {
		m.Trail[i].Alpha = Lerp(0, 0.8, float64(i)/n)
	}

	kept := w.entities[:0]
	for _, e := range w.entities {
		if CirclesOverlap(m.X, m.Y, m.Radius, e.X, e.Y, e.Radius) {
			w.cue(CueCollision)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(w.entities); i++ {
		w.entities[i] = nil
	}
	w.entities = kept
}
