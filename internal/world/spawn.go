package world

import (
	"math"

	"go.uber.org/zap"
)

// SpawnRequest asks for one entity. PreferredY is a hint, jittered and
// dropped when the spot is crowded.
type SpawnRequest struct {
	Team       Team
	Size       SizeClass
	PreferredY *float64
}

// AtY is a helper for building a PreferredY
func AtY(y float64) *float64 {
	return &y
}

type SpawnOutcome uint8

const (
	SpawnPlaced   SpawnOutcome = iota
	SpawnQueued                // phase forbids entities, applied at next gameplay start
	SpawnDeferred              // too crowded, retried once after a short delay
	SpawnDropped               // invalid request or queue full
)

func (o SpawnOutcome) String() string {
	switch o {
	case SpawnPlaced:
		return "placed"

	case SpawnQueued:
		return "queued"

	case SpawnDeferred:
		return "deferred"

	default:
		return "dropped"
	}
}

// Spawn places one entity, or queues the request while the phase forbids
// new entities. Returns the new entity ID when placed.
func (w *World) Spawn(req SpawnRequest) (uint64, SpawnOutcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawn(req, false)
}

// spawn is the gated entry point. Caller holds mu.
func (w *World) spawn(req SpawnRequest, retry bool) (uint64, SpawnOutcome) {
	if req.Team != TeamA && req.Team != TeamB {
		w.log.Warn("spawn with no team ignored", zap.Stringer("team", req.Team))
		return 0, SpawnDropped
	}

	if !w.phase.AcceptsSpawns() {
		return 0, w.enqueue(req)
	}

	return w.place(req, retry)
}

func (w *World) enqueue(req SpawnRequest) SpawnOutcome {
	if len(w.spawnQueue) >= w.rules.MaxQueuedSpawns {
		w.log.Warn("spawn queue full, dropping request",
			zap.Stringer("team", req.Team),
			zap.Int("queued", len(w.spawnQueue)))
		return SpawnDropped
	}
	w.spawnQueue = append(w.spawnQueue, req)
	return SpawnQueued
}

// place runs the anti-cramming search and appends the entity, bypassing the
// phase gate. Caller holds mu.
func (w *World) place(req SpawnRequest, retry bool) (uint64, SpawnOutcome) {
	r := &w.rules
	radius := r.radiusFor(req.Size)
	minSep := radius * r.CrampFactor
	minY := radius + r.SpawnMargin
	maxY := r.Height - radius - r.SpawnMargin

	preferred := req.PreferredY
	for attempt := 0; attempt < r.SpawnAttempts; attempt++ {
		var y float64
		if preferred != nil {
			y = *preferred + float64(RandInt(w.rng, -r.SpawnJitterY, r.SpawnJitterY))
		} else {
			y = float64(RandInt(w.rng, int(math.Ceil(minY)), int(math.Floor(maxY))))
		}
		y = Clamp(y, minY, maxY)

		x := w.backlineX(req.Team) + float64(RandInt(w.rng, -r.SpawnJitterX, r.SpawnJitterX))
		x = Clamp(x, radius, r.Width-radius)

		if !w.crowded(x, y, minSep) {
			e := w.newEntity(req.Team, req.Size, x, y)
			w.entities = append(w.entities, e)
			return e.ID, SpawnPlaced
		}

		// relax: any height will do from now on
		preferred = nil
	}

	if retry {
		w.log.Info("spawn dropped after retry, arena too crowded",
			zap.Stringer("team", req.Team),
			zap.Stringer("size", req.Size))
		return 0, SpawnDeferred
	}

	w.log.Debug("spawn blocked by cramming, retrying",
		zap.Stringer("team", req.Team),
		zap.Float64("delay", r.SpawnRetryDelay))
	again := SpawnRequest{Team: req.Team, Size: req.Size}
	w.after(r.SpawnRetryDelay, "spawn-retry", func() {
		w.spawn(again, true)
	})
	return 0, SpawnDeferred
}

func (w *World) backlineX(team Team) float64 {
	if team == TeamA {
		return w.rules.SpawnZoneWidth / 2
	}
	return w.rules.Width - w.rules.SpawnZoneWidth/2
}

func (w *World) crowded(x, y, minSep float64) bool {
	for _, e := range w.entities {
		if Distance(x, y, e.X, e.Y) < minSep {
			return true
		}
	}
	return false
}

// SpawnMultiple places count entities in a fixed formation around one
// random anchor instead of rolling each position, so a burst never fights
// the anti-cramming search. Columns wrap inside the team's own half.
// Returns how many were placed or queued.
func (w *World) SpawnMultiple(team Team, count int, size SizeClass) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if team != TeamA && team != TeamB || count <= 0 {
		return 0
	}

	if !w.phase.AcceptsFormations() {
		n := 0
		for i := 0; i < count; i++ {
			if w.enqueue(SpawnRequest{Team: team, Size: size}) == SpawnQueued {
				n++
			}
		}
		return n
	}

	r := &w.rules
	radius := r.radiusFor(size)
	lo := r.MultiMargin
	hi := r.Height - r.MultiMargin
	span := hi - lo

	stepY, stepX, cols := 40.0, 30.0, 3
	if size == SizeLarge {
		stepY, stepX = 80, 100
		cols = formationColumns(r.Width/2-r.SpawnZoneWidth-2*radius, stepX)
	}

	baseY := RandFloat(w.rng, r.AutoSpawnMarginY, r.Height-r.AutoSpawnMarginY)
	for i := 0; i < count; i++ {
		xOff := float64(i%cols) * stepX

		y := lo + math.Mod(baseY-lo+float64(i)*stepY, span)

		x := r.SpawnZoneWidth + radius + xOff
		if team == TeamB {
			x = r.Width - r.SpawnZoneWidth - radius - xOff
		}
		x = Clamp(x, radius, r.Width-radius)

		e := w.newEntity(team, size, x, y)
		w.entities = append(w.entities, e)
	}
	return count
}

// formationColumns is how many columns stepX apart fit in depth
func formationColumns(depth, stepX float64) int {
	if depth <= 0 {
		return 1
	}
	return int(depth/stepX) + 1
}

// flushSpawnQueue applies everything queued while spawns were frozen.
// Caller holds mu.
func (w *World) flushSpawnQueue() {
	if len(w.spawnQueue) == 0 {
		return
	}

	queued := w.spawnQueue
	w.spawnQueue = nil
	w.log.Debug("flushing queued spawns", zap.Int("count", len(queued)))

	for i, req := range queued {
		spacing := float64(i) * w.rules.QueueSpacing
		y := w.rules.AutoSpawnMarginY + spacing
		if req.PreferredY != nil {
			y = *req.PreferredY + spacing
		}
		req.PreferredY = AtY(y)
		w.place(req, false)
	}
}

// QueuedSpawns returns the number of requests waiting for gameplay
func (w *World) QueuedSpawns() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.spawnQueue)
}
