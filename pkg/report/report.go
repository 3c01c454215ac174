package report

import (
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
	"github.com/mchmarny/creatorpulse/pkg/score"
)

// Report is the scored view of one creator for one period.
type Report struct {
	CreatorID    string                         `json:"creator_id" yaml:"creatorID"`
	Profile      *creator.Profile               `json:"profile" yaml:"profile"`
	Period       score.Period                   `json:"period" yaml:"period"`
	Interactions creator.InteractionMode        `json:"interactions" yaml:"interactions"`
	Stats        *creator.Stats                 `json:"stats" yaml:"stats"`
	Score        score.Breakdown                `json:"score" yaml:"score"`
	Tier         score.Tier                     `json:"tier" yaml:"tier"`
	Percentile   score.PercentileRow            `json:"percentile" yaml:"percentile"`
	Badges       []*score.BadgeResult           `json:"badges" yaml:"badges"`
	Characters   []*score.GradedCharacter       `json:"characters" yaml:"characters"`
	TierCounts   map[score.CharacterTierKey]int `json:"tier_counts" yaml:"tierCounts"`
	FetchedAt    time.Time                      `json:"fetched_at" yaml:"fetchedAt"`
	GeneratedAt  time.Time                      `json:"generated_at" yaml:"generatedAt"`
	Cached       bool                           `json:"cached" yaml:"cached"`
}

// Compose scores a snapshot. Badges and the percentile always use the
// full history; score, tier and characters follow the period. Character
// counts follow cfg.Interactions.
func Compose(snap *creator.Snapshot, period score.Period, now time.Time, cfg *score.Config) *Report {
	if cfg == nil {
		cfg = score.DefaultConfig()
	}
	if snap == nil {
		snap = &creator.Snapshot{}
	}

	profile := snap.Profile
	if profile == nil {
		profile = &creator.Profile{}
	}
	stats := creator.NormalizeStats(nil)
	if snap.Stats != nil {
		stats = snap.Stats
	}

	mode := cfg.Interactions
	if mode != creator.InteractionsOriginal {
		mode = creator.InteractionsWithRegen
	}
	stats, chars := score.ApplyInteractions(stats, snap.Characters, mode)

	periodStats, periodChars := stats, chars
	if period == score.PeriodRecent {
		periodStats, periodChars = score.RecentStats(stats, chars, now, cfg.RecentWindow)
	} else {
		period = score.PeriodTotal
	}

	b := score.ScoreBreakdown(periodStats, periodChars, cfg.Weights)
	ranked := score.TopCharacters(periodChars, -1)

	return &Report{
		CreatorID:    profile.ID,
		Profile:      profile,
		Period:       period,
		Interactions: mode,
		Stats:        periodStats,
		Score:        b,
		Tier:         score.Classify(b.Total, cfg.Tiers),
		Percentile:   score.Percentile(stats.PlotInteractionCount, cfg.Percentiles),
		Badges: score.EvaluateBadges(&score.BadgeInput{
			Characters: chars,
			Stats:      stats,
			Now:        now,
		}, cfg.Badges),
		Characters:  score.GradeCharacters(ranked, cfg.CharacterTiers),
		TierCounts:  score.TierCounts(periodChars, cfg.CharacterTiers),
		FetchedAt:   snap.FetchedAt,
		GeneratedAt: now.UTC(),
	}
}
