package score

import (
	"sort"

	"github.com/mchmarny/creatorpulse/pkg/creator"
)

// CharacterTierKey is the letter grade of a single character.
type CharacterTierKey string

const (
	CharacterTierB  CharacterTierKey = "B"
	CharacterTierA  CharacterTierKey = "A"
	CharacterTierS  CharacterTierKey = "S"
	CharacterTierR  CharacterTierKey = "R"
	CharacterTierSR CharacterTierKey = "SR"
	CharacterTierX  CharacterTierKey = "X"
)

// CharacterTierRow maps an inclusive interaction lower bound to a grade.
type CharacterTierRow struct {
	Key        CharacterTierKey `json:"key" yaml:"key"`
	LowerBound int64            `json:"lower_bound" yaml:"lowerBound"`
	Color      string           `json:"color" yaml:"color"`
}

// CharacterTierTable is ordered ascending by LowerBound; the first row
// should start at 0.
type CharacterTierTable []CharacterTierRow

// Rank returns the position of key in the table, or -1.
func (t CharacterTierTable) Rank(key CharacterTierKey) int {
	for i, r := range t {
		if r.Key == key {
			return i
		}
	}
	return -1
}

// Lookup returns the row for the interaction count.
func (t CharacterTierTable) Lookup(interactions int64) CharacterTierRow {
	if len(t) == 0 {
		return CharacterTierRow{Key: CharacterTierB}
	}
	if interactions < 0 {
		interactions = 0
	}
	i := sort.Search(len(t), func(i int) bool { return t[i].LowerBound > interactions }) - 1
	if i < 0 {
		i = 0
	}
	return t[i]
}

// CharacterTier returns the grade for one character's interaction count.
func CharacterTier(interactions int64, table CharacterTierTable) CharacterTierKey {
	return table.Lookup(interactions).Key
}

// GradedCharacter is a character with its grade attached.
type GradedCharacter struct {
	creator.Character `yaml:",inline"`
	Tier              CharacterTierKey `json:"tier" yaml:"tier"`
	TierColor         string           `json:"tier_color" yaml:"tierColor"`
}

// GradeCharacters grades every character, preserving order.
func GradeCharacters(chars []*creator.Character, table CharacterTierTable) []*GradedCharacter {
	list := make([]*GradedCharacter, 0, len(chars))
	for _, c := range chars {
		if c == nil {
			continue
		}
		row := table.Lookup(c.InteractionCount)
		list = append(list, &GradedCharacter{Character: *c, Tier: row.Key, TierColor: row.Color})
	}
	return list
}

// TierCounts counts characters per grade.
func TierCounts(chars []*creator.Character, table CharacterTierTable) map[CharacterTierKey]int {
	counts := make(map[CharacterTierKey]int, len(table))
	for _, r := range table {
		counts[r.Key] = 0
	}
	for _, c := range chars {
		if c != nil {
			counts[CharacterTier(c.InteractionCount, table)]++
		}
	}
	return counts
}
