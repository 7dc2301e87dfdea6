package live

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GiftAction is what a gift turns into on the field
type GiftAction string

const (
	ActionSpawnMultiple GiftAction = "spawn_multiple"
	ActionSpawnLarge    GiftAction = "spawn_large"
	ActionWildCard      GiftAction = "wild_card"
)

func (a GiftAction) valid() bool {
	switch a {
	case ActionSpawnMultiple, ActionSpawnLarge, ActionWildCard:
		return true
	}
	return false
}

// GiftRule is one classification result. Team is a faction name or a
// generic label, empty for wild cards.
type GiftRule struct {
	Action GiftAction `yaml:"action"`
	Team   string     `yaml:"team,omitempty"`
	Count  int        `yaml:"count"`
	Large  bool       `yaml:"large"`
}

// GiftTier applies to unlisted gifts cheaper than Below diamonds.
// Below == 0 matches everything.
type GiftTier struct {
	Below    int `yaml:"below"`
	GiftRule `yaml:",inline"`
}

// GiftTable classifies gifts by exact name, falling back to diamond tiers
type GiftTable struct {
	gifts map[string]GiftRule
	tiers []GiftTier // ascending, open-ended tier last
}

type giftTableFile struct {
	Gifts map[string]GiftRule `yaml:"gifts"`
	Tiers []GiftTier          `yaml:"tiers"`
}

// DefaultGiftTable is the built-in mapping used when no file is configured
func DefaultGiftTable() *GiftTable {
	small := func(team string) GiftRule {
		return GiftRule{Action: ActionSpawnMultiple, Team: team, Count: 5}
	}
	large := func(team string) GiftRule {
		return GiftRule{Action: ActionSpawnLarge, Team: team, Count: 1, Large: true}
	}
	wild := GiftRule{Action: ActionWildCard}

	return newGiftTable(map[string]GiftRule{
		"Rose":           small("bat"),
		"Pumpkin":        small("pumpkin"),
		"Boo":            large("pumpkin"),
		"GG":             large("pumpkin"),
		"Ice Cream Cone": large("pumpkin"),
		"Mishka Bear":    large("pumpkin"),
		"Rosa":           large("bat"),
		"Love Bang":      large("bat"),
		"Star":           large("bat"),
		"October":        wild,
		"Drama Queen":    wild,
		"Signature Jet":  wild,
		"Sports Car":     wild,
		"Lion":           wild,
	}, defaultTiers())
}

func defaultTiers() []GiftTier {
	return []GiftTier{
		{Below: 10, GiftRule: GiftRule{Action: ActionSpawnMultiple, Team: "bat", Count: 5}},
		{Below: 100, GiftRule: GiftRule{Action: ActionSpawnLarge, Team: "pumpkin", Count: 1, Large: true}},
		{Below: 0, GiftRule: GiftRule{Action: ActionWildCard}},
	}
}

func newGiftTable(gifts map[string]GiftRule, tiers []GiftTier) *GiftTable {
	sorted := make([]GiftTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Below, sorted[j].Below
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})
	return &GiftTable{gifts: gifts, tiers: sorted}
}

// LoadGiftTable loads gift mappings from a YAML file. A file without tiers
// keeps the built-in diamond tiers.
func LoadGiftTable(path string) (*GiftTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gift table: %w", err)
	}
	var f giftTableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse gift table: %w", err)
	}

	for name, rule := range f.Gifts {
		if !rule.Action.valid() {
			return nil, fmt.Errorf("gift %q: unknown action %q", name, rule.Action)
		}
		if rule.Action == ActionSpawnMultiple && rule.Count <= 0 {
			rule.Count = 1
			f.Gifts[name] = rule
		}
	}
	for i, tier := range f.Tiers {
		if !tier.Action.valid() {
			return nil, fmt.Errorf("tier %d: unknown action %q", i, tier.Action)
		}
	}

	tiers := f.Tiers
	if len(tiers) == 0 {
		tiers = defaultTiers()
	}
	if f.Gifts == nil {
		f.Gifts = make(map[string]GiftRule)
	}
	return newGiftTable(f.Gifts, tiers), nil
}

// Classify returns the rule for a gift by name, else by diamond value
func (t *GiftTable) Classify(name string, diamonds int) GiftRule {
	if rule, ok := t.gifts[name]; ok {
		return rule
	}
	for _, tier := range t.tiers {
		if tier.Below == 0 || diamonds < tier.Below {
			return tier.GiftRule
		}
	}
	return GiftRule{Action: ActionWildCard}
}

// Count returns the number of named gifts
func (t *GiftTable) Count() int {
	return len(t.gifts)
}
