package creator

import (
	"strings"
	"time"
)

// InteractionMode selects which interaction counter a character reports.
type InteractionMode string

const (
	// InteractionsWithRegen counts regenerated responses (upstream default).
	InteractionsWithRegen InteractionMode = "regen"
	// InteractionsOriginal excludes regenerated responses.
	InteractionsOriginal InteractionMode = "original"
)

// ParseInteractionMode returns InteractionsOriginal for "original" and
// InteractionsWithRegen otherwise.
func ParseInteractionMode(s string) InteractionMode {
	if InteractionMode(strings.ToLower(strings.TrimSpace(s))) == InteractionsOriginal {
		return InteractionsOriginal
	}
	return InteractionsWithRegen
}

// Profile is the public creator profile.
type Profile struct {
	ID          string `json:"id" yaml:"id"`
	Handle      string `json:"handle,omitempty" yaml:"handle,omitempty"`
	Nickname    string `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty" yaml:"imageURL,omitempty"`
}

// Stats holds the aggregate counters for one creator.
type Stats struct {
	PlotInteractionCount int64 `json:"plot_interaction_count" yaml:"plotInteractionCount"`
	FollowerCount        int64 `json:"follower_count" yaml:"followerCount"`
	FollowingCount       int64 `json:"following_count" yaml:"followingCount"`
	PlotCount            int64 `json:"plot_count" yaml:"plotCount"`
	VoicePlayCount       int64 `json:"voice_play_count" yaml:"voicePlayCount"`
	PostCount            int64 `json:"post_count" yaml:"postCount"`
}

// Ranking is the optional ranking metadata attached to a character.
type Ranking struct {
	TrendingRank int  `json:"trending_rank,omitempty" yaml:"trendingRank,omitempty"`
	BestRank     int  `json:"best_rank,omitempty" yaml:"bestRank,omitempty"`
	NewRank      int  `json:"new_rank,omitempty" yaml:"newRank,omitempty"`
	RankDelta    int  `json:"rank_delta,omitempty" yaml:"rankDelta,omitempty"`
	IsNew        bool `json:"is_new,omitempty" yaml:"isNew,omitempty"`
}

// Character is one creator-authored character (plot).
type Character struct {
	ID                       string    `json:"id" yaml:"id"`
	Name                     string    `json:"name" yaml:"name"`
	CreatorID                string    `json:"creator_id,omitempty" yaml:"creatorID,omitempty"`
	CreatedAt                time.Time `json:"created_at" yaml:"createdAt"`
	InteractionCount         int64     `json:"interaction_count" yaml:"interactionCount"`
	OriginalInteractionCount int64     `json:"original_interaction_count,omitempty" yaml:"originalInteractionCount,omitempty"`
	Hashtags                 []string  `json:"hashtags" yaml:"hashtags"`
	LongDescriptionPublic    bool      `json:"long_description_public" yaml:"longDescriptionPublic"`
	UnlimitedAllowed         bool      `json:"unlimited_allowed" yaml:"unlimitedAllowed"`
	Ranking                  *Ranking  `json:"ranking,omitempty" yaml:"ranking,omitempty"`
}

// Interactions returns the interaction count for the given mode. When the
// original count is unknown the with-regen count is used.
func (c *Character) Interactions(mode InteractionMode) int64 {
	if c == nil {
		return 0
	}
	if mode == InteractionsOriginal && c.OriginalInteractionCount > 0 {
		return c.OriginalInteractionCount
	}
	return c.InteractionCount
}

// WithInteractions returns copies of chars whose InteractionCount holds the
// count of mode. Nil entries are dropped. With-regen returns chars as is.
func WithInteractions(chars []*Character, mode InteractionMode) []*Character {
	if mode != InteractionsOriginal {
		return chars
	}
	list := make([]*Character, 0, len(chars))
	for _, c := range chars {
		if c == nil {
			continue
		}
		cp := *c
		cp.InteractionCount = c.Interactions(mode)
		list = append(list, &cp)
	}
	return list
}

// Snapshot is everything fetched for one creator query.
type Snapshot struct {
	Profile    *Profile     `json:"profile" yaml:"profile"`
	Stats      *Stats       `json:"stats" yaml:"stats"`
	Characters []*Character `json:"characters" yaml:"characters"`
	FetchedAt  time.Time    `json:"fetched_at" yaml:"fetchedAt"`
}

// CreatedWithin returns the characters created in the window ending at now.
func CreatedWithin(chars []*Character, now time.Time, window time.Duration) []*Character {
	since := now.Add(-window)
	list := make([]*Character, 0, len(chars))
	for _, c := range chars {
		if c == nil || c.CreatedAt.IsZero() {
			continue
		}
		if !c.CreatedAt.Before(since) && !c.CreatedAt.After(now) {
			list = append(list, c)
		}
	}
	return list
}

// SumInteractions adds up interaction counts of the given characters.
func SumInteractions(chars []*Character) int64 {
	var sum int64
	for _, c := range chars {
		if c != nil && c.InteractionCount > 0 {
			sum += c.InteractionCount
		}
	}
	return sum
}
