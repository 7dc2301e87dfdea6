package world

// Snapshot is the read-only view handed to presentation. Field tags are
// shared by the msgpack frames and the JSON status endpoint.
type Snapshot struct {
	Frame         uint64        `json:"frame" msgpack:"frame"`
	Round         uint64        `json:"round" msgpack:"round"`
	Phase         string        `json:"phase" msgpack:"phase"`
	Countdown     int           `json:"countdown" msgpack:"countdown"`
	ScoreA        int           `json:"scoreA" msgpack:"scoreA"`
	ScoreB        int           `json:"scoreB" msgpack:"scoreB"`
	TimeRemaining float64       `json:"timeRemaining" msgpack:"timeRemaining"`
	Clock         string        `json:"clock" msgpack:"clock"`
	Tally         Tally         `json:"tally" msgpack:"tally"`
	TeamNames     [2]string     `json:"teamNames" msgpack:"teamNames"`
	QueuedSpawns  int           `json:"queuedSpawns" msgpack:"queuedSpawns"`
	Entities      []EntityState `json:"entities" msgpack:"entities"`
	Mega          *MegaState    `json:"mega,omitempty" msgpack:"mega,omitempty"`
	Meteor        *MeteorState  `json:"meteor,omitempty" msgpack:"meteor,omitempty"`
	ArenaWidth    float64       `json:"arenaWidth" msgpack:"arenaWidth"`
	ArenaHeight   float64       `json:"arenaHeight" msgpack:"arenaHeight"`
	EndZoneWidth  float64       `json:"endZoneWidth" msgpack:"endZoneWidth"`
	SuddenDeathOn bool          `json:"suddenDeath" msgpack:"suddenDeath"`
}

type EntityState struct {
	ID     uint64  `json:"id" msgpack:"id"`
	Team   string  `json:"team" msgpack:"team"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"r" msgpack:"r"`
	HP     int     `json:"hp" msgpack:"hp"`
	MaxHP  int     `json:"maxHp" msgpack:"maxHp"`
	Size   string  `json:"size" msgpack:"size"`
	Blink  bool    `json:"blink" msgpack:"blink"`
}

type MegaState struct {
	Kind      string  `json:"kind" msgpack:"kind"`
	Remaining float64 `json:"remaining" msgpack:"remaining"`
}

type MeteorState struct {
	X      float64      `json:"x" msgpack:"x"`
	Y      float64      `json:"y" msgpack:"y"`
	Radius float64      `json:"r" msgpack:"r"`
	Trail  []TrailPoint `json:"trail" msgpack:"trail"`
}

// Safe read for broadcasting
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Snapshot{
		Frame:         w.frame,
		Round:         w.round,
		Phase:         w.phase.String(),
		Countdown:     w.countdownValue,
		ScoreA:        w.scoreA,
		ScoreB:        w.scoreB,
		TimeRemaining: w.timeRemaining,
		Tally:         w.tally,
		TeamNames:     w.rules.TeamNames,
		QueuedSpawns:  len(w.spawnQueue),
		Entities:      make([]EntityState, 0, len(w.entities)),
		ArenaWidth:    w.rules.Width,
		ArenaHeight:   w.rules.Height,
		EndZoneWidth:  w.rules.EndZoneWidth,
		SuddenDeathOn: w.phase == PhaseSuddenDeath,
	}

	if w.phase == PhaseSuddenDeath {
		s.Clock = "SUDDEN DEATH"
	} else {
		s.Clock = FormatClock(w.timeRemaining)
	}

	half := w.rules.BlinkPeriod / 2
	for _, e := range w.entities {
		s.Entities = append(s.Entities, EntityState{
			ID:     e.ID,
			Team:   w.teamName(e.Team),
			X:      e.X,
			Y:      e.Y,
			Radius: e.Radius,
			HP:     e.HP,
			MaxHP:  e.MaxHP,
			Size:   e.Size.String(),
			Blink:  e.Large() && e.Wounded() && e.DamageBlinkTimer < half,
		})
	}

	if w.mega != nil {
		s.Mega = &MegaState{Kind: w.mega.Kind.String(), Remaining: w.mega.Remaining}
		if m := w.mega.Meteor; m != nil {
			trail := make([]TrailPoint, len(m.Trail))
			copy(trail, m.Trail)
			s.Meteor = &MeteorState{X: m.X, Y: m.Y, Radius: m.Radius, Trail: trail}
		}
	}

	return s
}
