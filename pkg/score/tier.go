package score

import (
	"math"
	"sort"
)

// TierKey identifies a creator tier band.
type TierKey string

const (
	TierUnranked TierKey = "unranked"
	TierBronze   TierKey = "bronze"
	TierSilver   TierKey = "silver"
	TierGold     TierKey = "gold"
	TierPlatinum TierKey = "platinum"
	TierDiamond  TierKey = "diamond"
	TierMaster   TierKey = "master"
	TierChampion TierKey = "champion"

	subdivisions = 4
)

var romanNumerals = [...]string{"", "I", "II", "III", "IV"}

// Band is one row of a tier table. LowerBound is inclusive; the upper bound
// is the next row's LowerBound.
type Band struct {
	Key        TierKey `json:"key" yaml:"key"`
	Name       string  `json:"name" yaml:"name"`
	Color      string  `json:"color" yaml:"color"`
	Gradient   string  `json:"gradient" yaml:"gradient"`
	LowerBound float64 `json:"lower_bound" yaml:"lowerBound"`
	Subdivided bool    `json:"subdivided" yaml:"subdivided"`
}

// TierTable is an ordered list of bands, ascending by LowerBound.
type TierTable []Band

// Rank returns the position of key in the table, or -1.
func (t TierTable) Rank(key TierKey) int {
	for i, b := range t {
		if b.Key == key {
			return i
		}
	}
	return -1
}

// TierRef points at a tier band and optional subdivision.
type TierRef struct {
	Key         TierKey `json:"key" yaml:"key"`
	Name        string  `json:"name" yaml:"name"`
	Subdivision *int    `json:"subdivision" yaml:"subdivision"`
	Label       string  `json:"label" yaml:"label"`
	Score       float64 `json:"score" yaml:"score"`
}

// Tier is the classification of a creator score.
type Tier struct {
	Key           TierKey  `json:"key" yaml:"key"`
	Name          string   `json:"name" yaml:"name"`
	Color         string   `json:"color" yaml:"color"`
	Gradient      string   `json:"gradient" yaml:"gradient"`
	Subdivision   *int     `json:"subdivision" yaml:"subdivision"`
	Label         string   `json:"label" yaml:"label"`
	Progress      float64  `json:"progress" yaml:"progress"`
	SubProgress   float64  `json:"sub_progress" yaml:"subProgress"`
	NextTier      *TierRef `json:"next_tier" yaml:"nextTier"`
	NextGoalLabel string   `json:"next_goal_label,omitempty" yaml:"nextGoalLabel,omitempty"`
	NextGoalScore float64  `json:"next_goal_score,omitempty" yaml:"nextGoalScore,omitempty"`
}

// Classify maps a score to its tier. Subdivided bands are split into four
// equal subdivisions (I lowest, IV highest). Progress is the percent
// position within the band and SubProgress within the subdivision. The top
// band is open-ended: both saturate at 100 and there is no next tier.
func Classify(score float64, table TierTable) Tier {
	if len(table) == 0 {
		return Tier{Key: TierUnranked, Name: "Unranked", Label: "Unranked"}
	}

	s := finite(score)

	// first band whose lower bound exceeds s, minus one
	i := sort.Search(len(table), func(i int) bool { return table[i].LowerBound > s }) - 1
	if i < 0 {
		i = 0
	}
	band := table[i]

	t := Tier{
		Key:      band.Key,
		Name:     band.Name,
		Color:    band.Color,
		Gradient: band.Gradient,
		Label:    band.Name,
	}

	if i == len(table)-1 || math.IsInf(s, 1) {
		t.Progress = 100
		t.SubProgress = 100
		return t
	}

	lower := band.LowerBound
	upper := table[i+1].LowerBound
	span := upper - lower
	t.Progress = percent(s-lower, span)

	if !band.Subdivided {
		t.SubProgress = t.Progress
		t.setNext(refFor(table[i+1], upper))
		return t
	}

	width := span / subdivisions
	sub := int((s-lower)/width) + 1
	if sub > subdivisions {
		sub = subdivisions
	}
	subLower := lower + float64(sub-1)*width

	t.Subdivision = intPtr(sub)
	t.Label = label(band.Name, sub)
	t.SubProgress = percent(s-subLower, width)

	if sub < subdivisions {
		next := sub + 1
		t.setNext(&TierRef{
			Key:         band.Key,
			Name:        band.Name,
			Subdivision: intPtr(next),
			Label:       label(band.Name, next),
			Score:       subLower + width,
		})
		return t
	}

	t.setNext(refFor(table[i+1], upper))
	return t
}

func (t *Tier) setNext(ref *TierRef) {
	t.NextTier = ref
	t.NextGoalLabel = ref.Label
	t.NextGoalScore = ref.Score
}

func refFor(b Band, score float64) *TierRef {
	ref := &TierRef{Key: b.Key, Name: b.Name, Label: b.Name, Score: score}
	if b.Subdivided {
		ref.Subdivision = intPtr(1)
		ref.Label = label(b.Name, 1)
	}
	return ref
}

func label(name string, sub int) string {
	if sub < 1 || sub >= len(romanNumerals) {
		return name
	}
	return name + " " + romanNumerals[sub]
}

func percent(part, whole float64) float64 {
	if whole <= 0 || math.IsInf(whole, 0) {
		return 100
	}
	p := part / whole * 100
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return round2(p)
}

func intPtr(v int) *int {
	return &v
}
