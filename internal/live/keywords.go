package live

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Scrimzay/livebattle/internal/world"
)

// KeywordMatcher maps chat comments to a team by whole-word keywords.
// Team A keywords win when both sides match.
type KeywordMatcher struct {
	a, b *regexp.Regexp
}

func NewKeywordMatcher(teamA, teamB []string) (*KeywordMatcher, error) {
	a, err := keywordPattern(teamA)
	if err != nil {
		return nil, fmt.Errorf("team A keywords: %w", err)
	}
	b, err := keywordPattern(teamB)
	if err != nil {
		return nil, fmt.Errorf("team B keywords: %w", err)
	}
	return &KeywordMatcher{a: a, b: b}, nil
}

// DefaultKeywords returns the stock keyword lists for both teams
func DefaultKeywords() (teamA, teamB []string) {
	return []string{"pumpkin", "p"}, []string{"bat", "bats", "b"}
}

func keywordPattern(words []string) (*regexp.Regexp, error) {
	fold := cases.Fold()
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(fold.String(w)))
	}
	if len(quoted) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(^|\W)(` + strings.Join(quoted, "|") + `)(\W|$)`)
}

// Match reports which team a comment calls for
func (m *KeywordMatcher) Match(text string) (world.Team, bool) {
	folded := cases.Fold().String(text)

	if m.a != nil && m.a.MatchString(folded) {
		return world.TeamA, true
	}
	if m.b != nil && m.b.MatchString(folded) {
		return world.TeamB, true
	}
	return world.TeamNone, false
}
