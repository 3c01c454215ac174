package score

import (
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
)

const (
	// RecentWindowDefault is the trailing window of the "recent" period.
	RecentWindowDefault = 180 * 24 * time.Hour

	// MillionInteractions gates the hattrick and platinum badges.
	MillionInteractions int64 = 1_000_000
)

// Config bundles the weights and threshold tables used by the engine.
type Config struct {
	Weights        Weights
	RecentWindow   time.Duration
	Tiers          TierTable
	CharacterTiers CharacterTierTable
	Percentiles    PercentileTable
	Badges         []Badge
	// Interactions selects the per-character counter fed to the engine.
	Interactions creator.InteractionMode
}

// DefaultConfig returns the standard weights and tables.
func DefaultConfig() *Config {
	return &Config{
		Weights:        DefaultWeights(),
		RecentWindow:   RecentWindowDefault,
		Tiers:          DefaultTierTable(),
		CharacterTiers: DefaultCharacterTierTable(),
		Percentiles:    DefaultPercentileTable(),
		Badges:         DefaultBadges(),
		Interactions:   creator.InteractionsWithRegen,
	}
}

func DefaultWeights() Weights {
	return Weights{
		Interactions: 3,
		Followers:    300,
		TopSum:       0.5,
		Average:      20,
		VoicePlays:   100,
		TopN:         20,
	}
}

func DefaultTierTable() TierTable {
	return TierTable{
		{Key: TierUnranked, Name: "Unranked", LowerBound: 0, Color: "#9CA3AF", Gradient: "linear-gradient(135deg, #D1D5DB, #6B7280)"},
		{Key: TierBronze, Name: "Bronze", LowerBound: 100, Subdivided: true, Color: "#CD7F32", Gradient: "linear-gradient(135deg, #E6A15C, #8C5523)"},
		{Key: TierSilver, Name: "Silver", LowerBound: 1_000, Subdivided: true, Color: "#C0C0C0", Gradient: "linear-gradient(135deg, #F1F5F9, #94A3B8)"},
		{Key: TierGold, Name: "Gold", LowerBound: 3_000, Subdivided: true, Color: "#FFD700", Gradient: "linear-gradient(135deg, #FDE68A, #D97706)"},
		{Key: TierPlatinum, Name: "Platinum", LowerBound: 10_000, Subdivided: true, Color: "#2DD4BF", Gradient: "linear-gradient(135deg, #99F6E4, #0F766E)"},
		{Key: TierDiamond, Name: "Diamond", LowerBound: 30_000, Subdivided: true, Color: "#60A5FA", Gradient: "linear-gradient(135deg, #BFDBFE, #2563EB)"},
		{Key: TierMaster, Name: "Master", LowerBound: 100_000, Subdivided: true, Color: "#A855F7", Gradient: "linear-gradient(135deg, #E9D5FF, #7E22CE)"},
		{Key: TierChampion, Name: "Champion", LowerBound: 500_000, Color: "#EF4444", Gradient: "linear-gradient(135deg, #FCA5A5, #B91C1C)"},
	}
}

func DefaultCharacterTierTable() CharacterTierTable {
	return CharacterTierTable{
		{Key: CharacterTierB, LowerBound: 0, Color: "#9CA3AF"},
		{Key: CharacterTierA, LowerBound: 10_000, Color: "#22C55E"},
		{Key: CharacterTierS, LowerBound: 50_000, Color: "#3B82F6"},
		{Key: CharacterTierR, LowerBound: 100_000, Color: "#A855F7"},
		{Key: CharacterTierSR, LowerBound: 500_000, Color: "#F59E0B"},
		{Key: CharacterTierX, LowerBound: MillionInteractions, Color: "#EF4444"},
	}
}

func DefaultPercentileTable() PercentileTable {
	return PercentileTable{
		{LowerBound: 0, Top: 100, Label: "top 100%"},
		{LowerBound: 1_000, Top: 70, Label: "top 70%"},
		{LowerBound: 10_000, Top: 50, Label: "top 50%"},
		{LowerBound: 50_000, Top: 30, Label: "top 30%"},
		{LowerBound: 100_000, Top: 20, Label: "top 20%"},
		{LowerBound: 500_000, Top: 10, Label: "top 10%"},
		{LowerBound: 1_000_000, Top: 5, Label: "top 5%"},
		{LowerBound: 5_000_000, Top: 1, Label: "top 1%"},
		{LowerBound: 20_000_000, Top: 0.1, Label: "top 0.1%"},
	}
}

// DefaultBadges returns the badge table in display order.
func DefaultBadges() []Badge {
	return []Badge{
		{ID: "newbie", Name: "Newbie", Description: "First character published within the last 3 months",
			Rule: ActivityMonthsRule(3)},
		{ID: "one_year", Name: "One Year", Description: "Creating for at least a year",
			Rule: ActivityDaysRule(365)},
		{ID: "platinum", Name: "Platinum Record", Description: "A character with 1M+ interactions",
			Rule: CharacterCountRule(MillionInteractions, 1)},
		{ID: "hattrick", Name: "Hat Trick", Description: "Three characters with 1M+ interactions",
			Rule: CharacterCountRule(MillionInteractions, 3)},
		{ID: "prolific", Name: "Prolific", Description: "50 or more characters",
			Rule: CharacterTotalRule(50)},
		{ID: "influencer", Name: "Influencer", Description: "10,000 or more followers",
			Rule: StatRule(func(s *creator.Stats) int64 { return s.FollowerCount }, 10_000)},
		{ID: "voice_star", Name: "Voice Star", Description: "10,000 or more voice plays",
			Rule: StatRule(func(s *creator.Stats) int64 { return s.VoicePlayCount }, 10_000)},
		{ID: "socialite", Name: "Socialite", Description: "Following 100 or more creators",
			Rule: StatRule(func(s *creator.Stats) int64 { return s.FollowingCount }, 100)},
		{ID: "secret", Name: "Secret Keeper", Description: "80% of 5+ characters hide their long description",
			Rule: PrivateDescriptionRule(5, 0.8)},
		{ID: "expensive", Name: "Expensive Taste", Description: "10,000+ interactions per follower",
			Rule: InteractionsPerFollowerRule(10_000)},
		{ID: "undiscovered", Name: "Undiscovered", Description: "Publishing without a single follower",
			Rule: NoFollowersRule()},
		{ID: "unlimited", Name: "Unlimited", Description: "A character with unlimited content enabled",
			Rule: CharacterFlagRule(func(c *creator.Character) bool { return c.UnlimitedAllowed })},
		{ID: "trendsetter", Name: "Trendsetter", Description: "A character in the trending top 10",
			Rule: CharacterFlagRule(func(c *creator.Character) bool {
				return c.Ranking != nil && c.Ranking.TrendingRank > 0 && c.Ranking.TrendingRank <= 10
			})},
		{ID: "romantic", Name: "Romantic", Description: "A character tagged romance",
			Rule: TagRule("romance", "love")},
		{ID: "fantasist", Name: "Fantasist", Description: "A character tagged fantasy",
			Rule: TagRule("fantasy")},
		{ID: "scream_queen", Name: "Scream Queen", Description: "A character tagged horror",
			Rule: TagRule("horror", "thriller")},
		{ID: "comedian", Name: "Comedian", Description: "A character tagged comedy",
			Rule: TagRule("comedy")},
	}
}
