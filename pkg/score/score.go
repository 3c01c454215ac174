package score

import (
	"math"
	"sort"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
)

// Period selects which characters feed the creator score.
type Period string

const (
	PeriodTotal  Period = "total"
	PeriodRecent Period = "recent"
)

// ParsePeriod returns PeriodRecent for "recent" and PeriodTotal otherwise.
func ParsePeriod(s string) Period {
	if Period(s) == PeriodRecent {
		return PeriodRecent
	}
	return PeriodTotal
}

// Weights are the fixed multipliers of the creator score formula.
type Weights struct {
	Interactions float64 `json:"interactions" yaml:"interactions"`
	Followers    float64 `json:"followers" yaml:"followers"`
	TopSum       float64 `json:"top_sum" yaml:"topSum"`
	Average      float64 `json:"average" yaml:"average"`
	VoicePlays   float64 `json:"voice_plays" yaml:"voicePlays"`
	// TopN is the number of highest-interaction characters summed into TopSum.
	TopN int `json:"top_n" yaml:"topN"`
}

// Breakdown is the per-term contribution to a creator score.
type Breakdown struct {
	Interactions float64 `json:"interactions" yaml:"interactions"`
	Followers    float64 `json:"followers" yaml:"followers"`
	TopSum       float64 `json:"top_sum" yaml:"topSum"`
	Average      float64 `json:"average" yaml:"average"`
	VoicePlays   float64 `json:"voice_plays" yaml:"voicePlays"`
	Total        float64 `json:"total" yaml:"total"`
}

// ScoreBreakdown evaluates the creator score formula term by term:
//
//	interactions*w + followers*w + topSum*w + avgInteractions*w + voicePlays*w
//
// Average is interactions divided by the number of characters, 0 when the
// list is empty. Negative counters are treated as 0.
func ScoreBreakdown(stats *creator.Stats, chars []*creator.Character, w Weights) Breakdown {
	var s creator.Stats
	if stats != nil {
		s = *stats
	}

	interactions := nonNeg(s.PlotInteractionCount)

	var avg float64
	if n := countCharacters(chars); n > 0 {
		avg = interactions / float64(n)
	}

	b := Breakdown{
		Interactions: interactions * w.Interactions,
		Followers:    nonNeg(s.FollowerCount) * w.Followers,
		TopSum:       topSum(chars, w.TopN) * w.TopSum,
		Average:      avg * w.Average,
		VoicePlays:   nonNeg(s.VoicePlayCount) * w.VoicePlays,
	}
	b.Total = b.Interactions + b.Followers + b.TopSum + b.Average + b.VoicePlays
	return b
}

// CreatorScore returns the total creator score over all characters.
func CreatorScore(stats *creator.Stats, chars []*creator.Character, w Weights) float64 {
	return ScoreBreakdown(stats, chars, w).Total
}

// ApplyInteractions projects chars onto mode. In original mode the creator
// interaction total becomes the sum over characters, since upstream only
// reports the with-regen total.
func ApplyInteractions(stats *creator.Stats, chars []*creator.Character, mode creator.InteractionMode) (*creator.Stats, []*creator.Character) {
	if mode != creator.InteractionsOriginal {
		return stats, chars
	}
	var s creator.Stats
	if stats != nil {
		s = *stats
	}
	projected := creator.WithInteractions(chars, mode)
	s.PlotInteractionCount = creator.SumInteractions(projected)
	return &s, projected
}

// RecentStats recomputes stats over characters created within window of now.
// Interactions and plot count come from the subset; followers, following,
// voice plays and posts cannot be attributed to characters and are kept.
func RecentStats(stats *creator.Stats, chars []*creator.Character, now time.Time, window time.Duration) (*creator.Stats, []*creator.Character) {
	subset := creator.CreatedWithin(chars, now, window)

	var s creator.Stats
	if stats != nil {
		s = *stats
	}
	s.PlotInteractionCount = creator.SumInteractions(subset)
	s.PlotCount = int64(len(subset))
	return &s, subset
}

// RecentScore is CreatorScore restricted to the trailing window.
func RecentScore(stats *creator.Stats, chars []*creator.Character, now time.Time, cfg *Config) float64 {
	stats, chars = ApplyInteractions(stats, chars, cfg.Interactions)
	s, subset := RecentStats(stats, chars, now, cfg.RecentWindow)
	return CreatorScore(s, subset, cfg.Weights)
}

// Compute returns the breakdown for the selected period.
func Compute(stats *creator.Stats, chars []*creator.Character, period Period, now time.Time, cfg *Config) Breakdown {
	stats, chars = ApplyInteractions(stats, chars, cfg.Interactions)
	if period == PeriodRecent {
		s, subset := RecentStats(stats, chars, now, cfg.RecentWindow)
		return ScoreBreakdown(s, subset, cfg.Weights)
	}
	return ScoreBreakdown(stats, chars, cfg.Weights)
}

// TopCharacters returns up to n characters ordered by interactions, highest
// first. Ties keep the input order.
func TopCharacters(chars []*creator.Character, n int) []*creator.Character {
	list := make([]*creator.Character, 0, len(chars))
	for _, c := range chars {
		if c != nil {
			list = append(list, c)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].InteractionCount > list[j].InteractionCount
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

func topSum(chars []*creator.Character, n int) float64 {
	if n <= 0 {
		return 0
	}
	var sum float64
	for _, c := range TopCharacters(chars, n) {
		sum += nonNeg(c.InteractionCount)
	}
	return sum
}

func countCharacters(chars []*creator.Character) int {
	n := 0
	for _, c := range chars {
		if c != nil {
			n++
		}
	}
	return n
}

func nonNeg(v int64) float64 {
	if v < 0 {
		return 0
	}
	return float64(v)
}

// finite maps NaN and negative values to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
