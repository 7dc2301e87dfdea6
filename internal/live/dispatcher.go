package live

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/Scrimzay/livebattle/internal/world"
)

// Arena is the slice of the simulation the dispatcher drives
type Arena interface {
	Spawn(req world.SpawnRequest) (uint64, world.SpawnOutcome)
	SpawnMultiple(team world.Team, count int, size world.SizeClass) int
	ActivateMegaUnless(blocked world.Phase, kind world.MegaKind) bool
}

type Options struct {
	Gifts         *GiftTable
	Keywords      *KeywordMatcher
	TeamNames     [2]string
	LikesPerSpawn int
	Rng           *rand.Rand
}

// Dispatcher turns normalized events into engine calls. Its like counter
// and rng are its own, guarded by mu; every arena call is atomic on the
// arena side.
type Dispatcher struct {
	arena     Arena
	gifts     *GiftTable
	keywords  *KeywordMatcher
	teamNames [2]string
	perSpawn  int
	log       *zap.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	likes int
}

func NewDispatcher(arena Arena, log *zap.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Gifts == nil {
		opts.Gifts = DefaultGiftTable()
	}
	if opts.Keywords == nil {
		a, b := DefaultKeywords()
		opts.Keywords, _ = NewKeywordMatcher(a, b)
	}
	if opts.TeamNames == ([2]string{}) {
		opts.TeamNames = [2]string{"pumpkin", "bat"}
	}
	if opts.LikesPerSpawn <= 0 {
		opts.LikesPerSpawn = 10
	}
	if opts.Rng == nil {
		opts.Rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Dispatcher{
		arena:     arena,
		gifts:     opts.Gifts,
		keywords:  opts.Keywords,
		teamNames: opts.TeamNames,
		perSpawn:  opts.LikesPerSpawn,
		log:       log.Named("live"),
		rng:       opts.Rng,
	}
}

// Likes returns the running like total
func (d *Dispatcher) Likes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.likes
}

// Handle applies one event to the arena
func (d *Dispatcher) Handle(ev Event) {
	switch p := ev.Payload.(type) {
	case Like:
		d.handleLike(ev, p)

	case Comment:
		d.handleComment(ev, p)

	case Follow:
		d.mu.Lock()
		y1 := d.rng.Float64() * 100
		y2 := d.rng.Float64()*100 + 120
		d.mu.Unlock()

		d.arena.Spawn(world.SpawnRequest{Team: world.TeamA, Size: world.SizeSmall, PreferredY: world.AtY(y1)})
		d.arena.Spawn(world.SpawnRequest{Team: world.TeamB, Size: world.SizeSmall, PreferredY: world.AtY(y2)})
		d.log.Debug("follow spawned both teams", zap.String("user", ev.User))

	case Share:
		d.arena.Spawn(world.SpawnRequest{Team: world.TeamB, Size: world.SizeSmall})
		d.log.Debug("share spawned", zap.String("user", ev.User))

	case Gift:
		d.handleGift(ev, p)

	default:
		d.log.Warn("event ignored", zap.Stringer("id", ev.ID), zap.String("kind", string(ev.Kind())))
	}
}

func (d *Dispatcher) handleLike(ev Event, p Like) {
	count := p.Count
	if count <= 0 {
		count = 1
	}

	d.mu.Lock()
	before := d.likes
	d.likes += count
	crossed := d.likes/d.perSpawn - before/d.perSpawn
	teams := make([]world.Team, crossed)
	for i := range teams {
		teams[i] = d.randomTeam()
	}
	d.mu.Unlock()

	for _, team := range teams {
		d.arena.Spawn(world.SpawnRequest{Team: team, Size: world.SizeSmall})
	}
	if crossed > 0 {
		d.log.Debug("like threshold reached",
			zap.String("user", ev.User),
			zap.Int("total", before+count),
			zap.Int("spawns", crossed))
	}
}

func (d *Dispatcher) handleComment(ev Event, p Comment) {
	team, ok := d.keywords.Match(p.Text)
	if !ok {
		return
	}
	d.arena.Spawn(world.SpawnRequest{Team: team, Size: world.SizeSmall})
	d.log.Debug("keyword matched",
		zap.String("user", ev.User),
		zap.Stringer("team", team))
}

func (d *Dispatcher) handleGift(ev Event, g Gift) {
	rule := GiftRule{Action: g.Action, Team: g.Team, Count: g.Count, Large: g.Large}
	if rule.Action == "" {
		rule = d.gifts.Classify(g.Name, g.Diamonds)
	}

	log := d.log.With(
		zap.String("user", ev.User),
		zap.String("gift", g.Name),
		zap.Int("diamonds", g.Diamonds),
		zap.String("action", string(rule.Action)))

	switch rule.Action {
	case ActionSpawnMultiple:
		team, ok := world.ParseTeam(rule.Team, d.teamNames)
		if !ok {
			log.Warn("gift has no usable team", zap.String("team", rule.Team))
			return
		}
		size := world.SizeSmall
		if rule.Large {
			size = world.SizeLarge
		}
		count := rule.Count * max(1, g.Repeat)
		n := d.arena.SpawnMultiple(team, count, size)
		log.Info("gift spawned group", zap.Stringer("team", team), zap.Int("count", n))

	case ActionSpawnLarge:
		team, ok := world.ParseTeam(rule.Team, d.teamNames)
		if !ok {
			log.Warn("gift has no usable team", zap.String("team", rule.Team))
			return
		}
		d.arena.Spawn(world.SpawnRequest{Team: team, Size: world.SizeLarge})
		log.Info("gift spawned large unit", zap.Stringer("team", team))

	case ActionWildCard:
		d.mu.Lock()
		kind := world.MegaKinds[d.rng.Intn(len(world.MegaKinds))]
		d.mu.Unlock()
		if !d.arena.ActivateMegaUnless(world.PhaseSuddenDeath, kind) {
			log.Info("wild card suppressed during sudden death")
			return
		}
		log.Info("wild card", zap.Stringer("mega", kind))

	default:
		log.Warn("unknown gift action")
	}
}

// randomTeam flips a coin. Caller holds mu.
func (d *Dispatcher) randomTeam() world.Team {
	if d.rng.Float64() < 0.5 {
		return world.TeamA
	}
	return world.TeamB
}
