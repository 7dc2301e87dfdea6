package live

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Scrimzay/livebattle/internal/world"
)

type multiCall struct {
	team  world.Team
	count int
	size  world.SizeClass
}

type fakeArena struct {
	phase  world.Phase
	spawns []world.SpawnRequest
	multis []multiCall
	megas  []world.MegaKind
}

func (f *fakeArena) Spawn(req world.SpawnRequest) (uint64, world.SpawnOutcome) {
	f.spawns = append(f.spawns, req)
	return uint64(len(f.spawns)), world.SpawnPlaced
}

func (f *fakeArena) SpawnMultiple(team world.Team, count int, size world.SizeClass) int {
	f.multis = append(f.multis, multiCall{team, count, size})
	return count
}

func (f *fakeArena) ActivateMegaUnless(blocked world.Phase, kind world.MegaKind) bool {
	if f.phase == blocked {
		return false
	}
	f.megas = append(f.megas, kind)
	return true
}

func newTestDispatcher(t *testing.T, arena Arena) *Dispatcher {
	t.Helper()
	return NewDispatcher(arena, zaptest.NewLogger(t), Options{Rng: rand.New(rand.NewSource(3))})
}

func event(p Payload) Event {
	return Event{User: "tester", Payload: p}
}

func TestLikesSpawnEveryTenth(t *testing.T) {
	arena := &fakeArena{phase: world.PhasePlaying}
	d := newTestDispatcher(t, arena)

	for i := 0; i < 9; i++ {
		d.Handle(event(Like{Count: 1}))
	}
	if len(arena.spawns) != 0 {
		t.Fatalf("spawned %d before 10 likes", len(arena.spawns))
	}

	d.Handle(event(Like{Count: 1}))
	if len(arena.spawns) != 1 {
		t.Fatalf("spawned %d at 10 likes, want 1", len(arena.spawns))
	}
	if arena.spawns[0].Size != world.SizeSmall {
		t.Fatal("like spawns are small")
	}

	// a batch of 25 goes from 10 to 35 and crosses 20 and 30
	d.Handle(event(Like{Count: 25}))
	if len(arena.spawns) != 3 || d.Likes() != 35 {
		t.Fatalf("spawns %d likes %d", len(arena.spawns), d.Likes())
	}

	d.Handle(event(Like{Count: 0}))
	if d.Likes() != 36 {
		t.Fatalf("zero count should count as one like, total %d", d.Likes())
	}
}

func TestCommentKeywords(t *testing.T) {
	tests := []struct {
		text string
		want world.Team
	}{
		{"PUMPKIN power", world.TeamA},
		{"p", world.TeamA},
		{"bats and pumpkin", world.TeamA},
		{"go bats!", world.TeamB},
		{"B", world.TeamB},
		{"bathtub", world.TeamNone},
		{"happy halloween", world.TeamNone},
	}

	for _, tt := range tests {
		arena := &fakeArena{phase: world.PhasePlaying}
		d := newTestDispatcher(t, arena)
		d.Handle(event(Comment{Text: tt.text}))

		got := world.TeamNone
		if len(arena.spawns) == 1 {
			got = arena.spawns[0].Team
		}
		if got != tt.want || len(arena.spawns) > 1 {
			t.Errorf("%q: spawned %v (%d calls), want %v", tt.text, got, len(arena.spawns), tt.want)
		}
	}
}

func TestFollowSpawnsBothTeams(t *testing.T) {
	arena := &fakeArena{phase: world.PhasePlaying}
	d := newTestDispatcher(t, arena)

	d.Handle(event(Follow{}))

	if len(arena.spawns) != 2 {
		t.Fatalf("spawns = %d, want 2", len(arena.spawns))
	}
	a, b := arena.spawns[0], arena.spawns[1]
	if a.Team != world.TeamA || b.Team != world.TeamB {
		t.Fatalf("teams %v %v", a.Team, b.Team)
	}
	if y := *a.PreferredY; y < 0 || y >= 100 {
		t.Fatalf("team A y = %.1f", y)
	}
	if y := *b.PreferredY; y < 120 || y >= 220 {
		t.Fatalf("team B y = %.1f", y)
	}
}

func TestShareSpawnsTeamB(t *testing.T) {
	arena := &fakeArena{phase: world.PhasePlaying}
	d := newTestDispatcher(t, arena)

	d.Handle(event(Share{}))

	if len(arena.spawns) != 1 || arena.spawns[0].Team != world.TeamB {
		t.Fatalf("spawns = %+v", arena.spawns)
	}
}

func TestGiftComboMultipliesGroup(t *testing.T) {
	arena := &fakeArena{phase: world.PhasePlaying}
	d := newTestDispatcher(t, arena)

	d.Handle(event(Gift{Name: "Rose", Diamonds: 1, Repeat: 3}))

	if len(arena.multis) != 1 {
		t.Fatalf("group spawns = %d", len(arena.multis))
	}
	if got := arena.multis[0]; got != (multiCall{world.TeamB, 15, world.SizeSmall}) {
		t.Fatalf("group = %+v, want 15 small team B", got)
	}
}

func TestGiftActions(t *testing.T) {
	arena := &fakeArena{phase: world.PhasePlaying}
	d := newTestDispatcher(t, arena)

	d.Handle(event(Gift{Name: "Rosa", Repeat: 4}))
	if len(arena.spawns) != 1 || arena.spawns[0].Team != world.TeamB || arena.spawns[0].Size != world.SizeLarge {
		t.Fatalf("large spawn = %+v", arena.spawns)
	}

	d.Handle(event(Gift{Name: "October"}))
	if len(arena.megas) != 1 {
		t.Fatalf("wild card megas = %d", len(arena.megas))
	}

	// pre-classified by the relay
	d.Handle(event(Gift{Name: "Whatever", Action: ActionSpawnLarge, Team: "pumpkin"}))
	if len(arena.spawns) != 2 || arena.spawns[1].Team != world.TeamA {
		t.Fatalf("pre-classified spawn = %+v", arena.spawns)
	}

	d.Handle(event(Gift{Name: "Weird", Action: "teleport"}))
	if len(arena.spawns) != 2 || len(arena.multis) != 0 || len(arena.megas) != 1 {
		t.Fatal("unknown action should do nothing")
	}
}

func TestWildCardSuppressedInSuddenDeath(t *testing.T) {
	arena := &fakeArena{phase: world.PhaseSuddenDeath}
	d := newTestDispatcher(t, arena)

	d.Handle(event(Gift{Name: "Lion"}))
	if len(arena.megas) != 0 {
		t.Fatal("wild card fired during sudden death")
	}

	d.Handle(event(Gift{Name: "Pumpkin"}))
	if len(arena.multis) != 1 {
		t.Fatal("spawn gifts still go through during sudden death")
	}
}

func TestGiftClassifyFallbackTiers(t *testing.T) {
	table := DefaultGiftTable()

	tests := []struct {
		name     string
		diamonds int
		want     GiftAction
		team     string
	}{
		{"Rose", 1, ActionSpawnMultiple, "bat"},
		{"Mishka Bear", 10, ActionSpawnLarge, "pumpkin"},
		{"Unlisted", 5, ActionSpawnMultiple, "bat"},
		{"Unlisted", 10, ActionSpawnLarge, "pumpkin"},
		{"Unlisted", 99, ActionSpawnLarge, "pumpkin"},
		{"Unlisted", 100, ActionWildCard, ""},
	}
	for _, tt := range tests {
		got := table.Classify(tt.name, tt.diamonds)
		if got.Action != tt.want || got.Team != tt.team {
			t.Errorf("Classify(%q, %d) = %+v", tt.name, tt.diamonds, got)
		}
	}
}

func TestLoadGiftTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gifts.yaml")
	yaml := `
gifts:
  Galaxy: { action: wild_card }
  Finger Heart: { action: spawn_multiple, team: pumpkin, count: 3 }
tiers:
  - { below: 0, action: spawn_large, team: bat, count: 1, large: true }
  - { below: 50, action: spawn_multiple, team: pumpkin, count: 2 }
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadGiftTable(path)
	if err != nil {
		t.Fatalf("LoadGiftTable: %v", err)
	}
	if table.Count() != 2 {
		t.Fatalf("gifts = %d, want 2", table.Count())
	}
	if got := table.Classify("Finger Heart", 0); got.Count != 3 || got.Team != "pumpkin" {
		t.Fatalf("named gift = %+v", got)
	}
	// open-ended tier sorts last whatever the file order
	if got := table.Classify("Rose", 10); got.Action != ActionSpawnMultiple || got.Count != 2 {
		t.Fatalf("cheap tier = %+v", got)
	}
	if got := table.Classify("Rose", 500); got.Action != ActionSpawnLarge || got.Team != "bat" {
		t.Fatalf("open tier = %+v", got)
	}
}

func TestLoadGiftTableRejectsUnknownAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gifts.yaml")
	if err := os.WriteFile(path, []byte("gifts:\n  Rose: { action: explode }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGiftTable(path); err == nil {
		t.Fatal("expected an error for an unknown action")
	}
	if _, err := LoadGiftTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestFollowDuringCountdownLandsAtGameplayStart(t *testing.T) {
	w := world.New(world.DefaultRules(), zaptest.NewLogger(t), rand.New(rand.NewSource(9)))
	d := newTestDispatcher(t, w)
	w.StartRound()

	d.Handle(event(Follow{}))
	if w.EntityCount() != 0 || w.QueuedSpawns() != 2 {
		t.Fatalf("during countdown: entities %d queued %d", w.EntityCount(), w.QueuedSpawns())
	}

	for i := 0; i < 3; i++ {
		w.Update(1)
	}

	if w.Phase() != world.PhasePlaying {
		t.Fatalf("phase = %s", w.Phase())
	}
	if w.EntityCount() != 2 || w.QueuedSpawns() != 0 {
		t.Fatalf("at gameplay start: entities %d queued %d", w.EntityCount(), w.QueuedSpawns())
	}
}
