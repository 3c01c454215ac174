package score

import (
	"strings"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
)

const hoursPerDay = 24

// BadgeInput is everything a badge predicate may look at.
type BadgeInput struct {
	Characters []*creator.Character
	Stats      *creator.Stats
	Now        time.Time
}

// Facts are values derived once from BadgeInput and shared by predicates.
type Facts struct {
	Characters   []*creator.Character
	Stats        creator.Stats
	ActivityDays float64
}

// Rule evaluates one badge. It returns whether the badge is earned and,
// for character-based badges, the names of the matching characters.
type Rule func(f *Facts) (earned bool, names []string)

// Badge is one row of the badge table.
type Badge struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Rule        Rule   `json:"-" yaml:"-"`
}

// BadgeResult is the evaluation of one badge.
type BadgeResult struct {
	ID                     string   `json:"id" yaml:"id"`
	Name                   string   `json:"name" yaml:"name"`
	Earned                 bool     `json:"earned" yaml:"earned"`
	MatchingCharacterNames []string `json:"matching_character_names,omitempty" yaml:"matchingCharacterNames,omitempty"`
}

// NewFacts derives the shared facts. Nil entries are dropped and missing
// stats become zero.
func NewFacts(in *BadgeInput) *Facts {
	f := &Facts{Characters: make([]*creator.Character, 0)}
	if in == nil {
		return f
	}
	for _, c := range in.Characters {
		if c != nil {
			f.Characters = append(f.Characters, c)
		}
	}
	if in.Stats != nil {
		f.Stats = *in.Stats
	}
	f.ActivityDays = ActivityDays(f.Characters, in.Now)
	return f
}

// ActivityDays is now minus the earliest character creation time, in days.
// It is 0 when no character carries a creation time or the earliest one
// lies in the future.
func ActivityDays(chars []*creator.Character, now time.Time) float64 {
	var earliest time.Time
	for _, c := range chars {
		if c == nil || c.CreatedAt.IsZero() {
			continue
		}
		if earliest.IsZero() || c.CreatedAt.Before(earliest) {
			earliest = c.CreatedAt
		}
	}
	if earliest.IsZero() {
		return 0
	}
	d := now.Sub(earliest).Hours() / hoursPerDay
	if d < 0 {
		return 0
	}
	return d
}

// EvaluateBadges runs every badge in table order. Predicates are
// independent of each other.
func EvaluateBadges(in *BadgeInput, badges []Badge) []*BadgeResult {
	f := NewFacts(in)
	list := make([]*BadgeResult, 0, len(badges))
	for _, b := range badges {
		r := &BadgeResult{ID: b.ID, Name: b.Name}
		if b.Rule != nil {
			r.Earned, r.MatchingCharacterNames = b.Rule(f)
		}
		if !r.Earned {
			r.MatchingCharacterNames = nil
		}
		list = append(list, r)
	}
	return list
}

// Earned filters results down to the earned badges.
func Earned(results []*BadgeResult) []*BadgeResult {
	list := make([]*BadgeResult, 0)
	for _, r := range results {
		if r != nil && r.Earned {
			list = append(list, r)
		}
	}
	return list
}

// TagRule is earned when any character carries one of the tags.
// Matching is case-insensitive and exact.
func TagRule(tags ...string) Rule {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return func(f *Facts) (bool, []string) {
		names := matching(f.Characters, func(c *creator.Character) bool {
			for _, h := range c.Hashtags {
				if want[strings.ToLower(h)] {
					return true
				}
			}
			return false
		})
		return len(names) > 0, names
	}
}

// CharacterCountRule is earned when at least minCount characters reach
// minInteractions.
func CharacterCountRule(minInteractions int64, minCount int) Rule {
	return func(f *Facts) (bool, []string) {
		names := matching(f.Characters, func(c *creator.Character) bool {
			return c.InteractionCount >= minInteractions
		})
		return minCount > 0 && len(names) >= minCount, names
	}
}

// CharacterFlagRule is earned when any character satisfies pred.
func CharacterFlagRule(pred func(c *creator.Character) bool) Rule {
	return func(f *Facts) (bool, []string) {
		names := matching(f.Characters, pred)
		return len(names) > 0, names
	}
}

// StatRule is earned when the selected counter reaches threshold.
func StatRule(field func(s *creator.Stats) int64, threshold int64) Rule {
	return func(f *Facts) (bool, []string) {
		return field(&f.Stats) >= threshold, nil
	}
}

// CharacterTotalRule is earned when the creator has at least threshold
// characters. The larger of the stats plot count and the fetched list
// length is used.
func CharacterTotalRule(threshold int) Rule {
	return func(f *Facts) (bool, []string) {
		n := int64(len(f.Characters))
		if f.Stats.PlotCount > n {
			n = f.Stats.PlotCount
		}
		return n >= int64(threshold), nil
	}
}

// PrivateDescriptionRule is earned when at least minChars characters exist
// and at least ratio of them hide their long description.
func PrivateDescriptionRule(minChars int, ratio float64) Rule {
	return func(f *Facts) (bool, []string) {
		total := len(f.Characters)
		if total == 0 || total < minChars {
			return false, nil
		}
		names := matching(f.Characters, func(c *creator.Character) bool {
			return !c.LongDescriptionPublic
		})
		return float64(len(names))/float64(total) >= ratio, names
	}
}

// InteractionsPerFollowerRule is earned when interactions/followers reaches
// ratio. Zero followers never earns it.
func InteractionsPerFollowerRule(ratio float64) Rule {
	return func(f *Facts) (bool, []string) {
		if f.Stats.FollowerCount <= 0 {
			return false, nil
		}
		return nonNeg(f.Stats.PlotInteractionCount)/float64(f.Stats.FollowerCount) >= ratio, nil
	}
}

// NoFollowersRule is earned when the creator has characters but no followers.
func NoFollowersRule() Rule {
	return func(f *Facts) (bool, []string) {
		return f.Stats.FollowerCount <= 0 && len(f.Characters) > 0, nil
	}
}

// ActivityMonthsRule is earned when 0 < activityDays/30 <= maxMonths.
func ActivityMonthsRule(maxMonths float64) Rule {
	return func(f *Facts) (bool, []string) {
		months := f.ActivityDays / 30
		return months > 0 && months <= maxMonths, nil
	}
}

// ActivityDaysRule is earned when activityDays >= minDays.
func ActivityDaysRule(minDays float64) Rule {
	return func(f *Facts) (bool, []string) {
		return f.ActivityDays >= minDays, nil
	}
}

func matching(chars []*creator.Character, pred func(c *creator.Character) bool) []string {
	names := make([]string, 0)
	for _, c := range chars {
		if c != nil && pred(c) {
			names = append(names, c.Name)
		}
	}
	return names
}
