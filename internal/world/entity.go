package world

import "strings"

type Team uint8

const (
	TeamNone Team = 0
	TeamA    Team = 1 // pushes right, scores on the far right end zone
	TeamB    Team = 2 // pushes left
)

func (t Team) String() string {
	switch t {
	case TeamA:
		return "A"

	case TeamB:
		return "B"

	default:
		return "none"
	}
}

func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB

	case TeamB:
		return TeamA

	default:
		return TeamNone
	}
}

// ParseTeam accepts the generic labels ("a", "b") or the configured
// faction names, case-insensitively.
func ParseTeam(s string, names [2]string) (Team, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, "a"), strings.EqualFold(s, names[0]):
		return TeamA, true

	case strings.EqualFold(s, "b"), strings.EqualFold(s, names[1]):
		return TeamB, true

	default:
		return TeamNone, false
	}
}

type SizeClass uint8

const (
	SizeSmall SizeClass = 0
	SizeLarge SizeClass = 1
)

func (s SizeClass) String() string {
	switch s {
	case SizeLarge:
		return "large"

	default:
		return "small"
	}
}

// Damage dealt to an opponent on contact, independent of current hp
func (s SizeClass) Damage() int {
	if s == SizeLarge {
		return 2
	}
	return 1
}

func (s SizeClass) MaxHP() int {
	if s == SizeLarge {
		return 2
	}
	return 1
}

// Points awarded when an entity of this size reaches the end zone
func (s SizeClass) Points() int {
	if s == SizeLarge {
		return 3
	}
	return 1
}

type Entity struct {
	ID     uint64
	Team   Team
	Size   SizeClass
	X, Y   float64
	VX, VY float64
	Radius float64
	HP     int
	MaxHP  int

	DamageBlinkTimer float64 // render only
}

func (e *Entity) Large() bool {
	return e.Size == SizeLarge
}

func (e *Entity) Wounded() bool {
	return e.HP > 0 && e.HP < e.MaxHP
}

func (r *Rules) radiusFor(size SizeClass) float64 {
	if size == SizeLarge {
		return r.LargeRadius
	}
	return r.SmallRadius
}

func (r *Rules) speedFor(size SizeClass) float64 {
	if size == SizeLarge {
		return r.LargeSpeed
	}
	return r.SmallSpeed
}

// newEntity builds an entity at (x, y) heading toward the opposing end zone
func (w *World) newEntity(team Team, size SizeClass, x, y float64) *Entity {
	w.nextID++
	speed := w.rules.speedFor(size)
	if team == TeamB {
		speed = -speed
	}

	return &Entity{
		ID:     w.nextID,
		Team:   team,
		Size:   size,
		X:      x,
		Y:      y,
		VX:     speed,
		Radius: w.rules.radiusFor(size),
		HP:     size.MaxHP(),
		MaxHP:  size.MaxHP(),
	}
}
