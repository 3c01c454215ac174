package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/creatorpulse/pkg/score"
)

const recapTopCharacters = 3

// Recap is the shareable summary of a report.
type Recap struct {
	ShareID       string                   `json:"share_id" yaml:"shareID"`
	CreatorID     string                   `json:"creator_id" yaml:"creatorID"`
	Handle        string                   `json:"handle,omitempty" yaml:"handle,omitempty"`
	Nickname      string                   `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Period        score.Period             `json:"period" yaml:"period"`
	Score         float64                  `json:"score" yaml:"score"`
	TierKey       score.TierKey            `json:"tier_key" yaml:"tierKey"`
	TierLabel     string                   `json:"tier_label" yaml:"tierLabel"`
	TierColor     string                   `json:"tier_color" yaml:"tierColor"`
	Percentile    string                   `json:"percentile" yaml:"percentile"`
	Interactions  int64                    `json:"interactions" yaml:"interactions"`
	Followers     int64                    `json:"followers" yaml:"followers"`
	Characters    int                      `json:"characters" yaml:"characters"`
	TopCharacters []*score.GradedCharacter `json:"top_characters" yaml:"topCharacters"`
	Badges        []string                 `json:"badges" yaml:"badges"`
	GeneratedAt   time.Time                `json:"generated_at" yaml:"generatedAt"`
}

// NewRecap summarizes r under a fresh share ID.
func NewRecap(r *Report) *Recap {
	if r == nil {
		return nil
	}

	rc := &Recap{
		ShareID:       uuid.NewString(),
		CreatorID:     r.CreatorID,
		Period:        r.Period,
		Score:         r.Score.Total,
		TierKey:       r.Tier.Key,
		TierLabel:     r.Tier.Label,
		TierColor:     r.Tier.Color,
		Percentile:    r.Percentile.Label,
		Characters:    len(r.Characters),
		TopCharacters: r.Characters,
		Badges:        make([]string, 0),
		GeneratedAt:   r.GeneratedAt,
	}
	if len(rc.TopCharacters) > recapTopCharacters {
		rc.TopCharacters = rc.TopCharacters[:recapTopCharacters]
	}
	if r.Profile != nil {
		rc.Handle = r.Profile.Handle
		rc.Nickname = r.Profile.Nickname
	}
	if r.Stats != nil {
		rc.Interactions = r.Stats.PlotInteractionCount
		rc.Followers = r.Stats.FollowerCount
	}
	for _, b := range score.Earned(r.Badges) {
		rc.Badges = append(rc.Badges, b.Name)
	}
	return rc
}
