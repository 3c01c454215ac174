package creator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawCharacter is the union of the character shapes returned upstream.
type RawCharacter struct {
	ID                        string          `json:"id"`
	PlotID                    string          `json:"plotId"`
	Name                      string          `json:"name"`
	CreatorID                 string          `json:"creatorId"`
	CreatedAt                 json.RawMessage `json:"createdAt"`
	CreatedDate               json.RawMessage `json:"createdDate"`
	InteractionCount          *int64          `json:"interactionCount"`
	InteractionCountWithRegen *int64          `json:"interactionCountWithRegen"`
	OriginalInteractionCount  *int64          `json:"originalInteractionCount"`
	Hashtags                  []string        `json:"hashtags"`
	Tags                      []string        `json:"tags"`
	IsLongDescriptionPublic   *bool           `json:"isLongDescriptionPublic"`
	UnlimitedAllowed          *bool           `json:"unlimitedAllowed"`
	Ranking                   *RawRanking     `json:"ranking"`
}

// RawRanking is the upstream ranking metadata.
type RawRanking struct {
	Trending  *int  `json:"trending"`
	Best      *int  `json:"best"`
	New       *int  `json:"new"`
	RankDelta *int  `json:"rankDelta"`
	IsNew     *bool `json:"isNew"`
}

// RawStats is the upstream stats payload.
type RawStats struct {
	PlotInteractionCount *int64 `json:"plotInteractionCount"`
	FollowerCount        *int64 `json:"followerCount"`
	FollowingCount       *int64 `json:"followingCount"`
	PlotCount            *int64 `json:"plotCount"`
	VoicePlayCount       *int64 `json:"voicePlayCount"`
	PostCount            *int64 `json:"postCount"`
}

// RawProfile is the upstream profile payload.
type RawProfile struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	Handle          string `json:"handle"`
	Username        string `json:"username"`
	Nickname        string `json:"nickname"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profileImageUrl"`
	ImageURL        string `json:"imageUrl"`
}

// NormalizeCharacter maps one upstream character into the canonical record.
func NormalizeCharacter(r *RawCharacter) *Character {
	if r == nil {
		return nil
	}

	c := &Character{
		ID:                       firstNonEmpty(r.ID, r.PlotID),
		Name:                     strings.TrimSpace(r.Name),
		CreatorID:                r.CreatorID,
		InteractionCount:         firstCount(r.InteractionCountWithRegen, r.InteractionCount),
		OriginalInteractionCount: firstCount(r.OriginalInteractionCount),
		Hashtags:                 normalizeTags(r.Hashtags, r.Tags),
		LongDescriptionPublic:    r.IsLongDescriptionPublic == nil || *r.IsLongDescriptionPublic,
		UnlimitedAllowed:         r.UnlimitedAllowed != nil && *r.UnlimitedAllowed,
	}

	if t, ok := parseTimestamp(r.CreatedAt); ok {
		c.CreatedAt = t
	} else if t, ok := parseTimestamp(r.CreatedDate); ok {
		c.CreatedAt = t
	}

	if r.Ranking != nil {
		c.Ranking = &Ranking{
			TrendingRank: deref(r.Ranking.Trending),
			BestRank:     deref(r.Ranking.Best),
			NewRank:      deref(r.Ranking.New),
			RankDelta:    deref(r.Ranking.RankDelta),
			IsNew:        r.Ranking.IsNew != nil && *r.Ranking.IsNew,
		}
	}

	return c
}

// NormalizeCharacters maps a list, dropping nil entries.
func NormalizeCharacters(list []*RawCharacter) []*Character {
	out := make([]*Character, 0, len(list))
	for _, r := range list {
		if c := NormalizeCharacter(r); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// NormalizeStats maps upstream stats; missing counters become 0.
func NormalizeStats(r *RawStats) *Stats {
	if r == nil {
		return &Stats{}
	}
	return &Stats{
		PlotInteractionCount: firstCount(r.PlotInteractionCount),
		FollowerCount:        firstCount(r.FollowerCount),
		FollowingCount:       firstCount(r.FollowingCount),
		PlotCount:            firstCount(r.PlotCount),
		VoicePlayCount:       firstCount(r.VoicePlayCount),
		PostCount:            firstCount(r.PostCount),
	}
}

// NormalizeProfile maps the upstream profile.
func NormalizeProfile(r *RawProfile) *Profile {
	if r == nil {
		return &Profile{}
	}
	return &Profile{
		ID:          firstNonEmpty(r.ID, r.UserID),
		Handle:      strings.TrimPrefix(firstNonEmpty(r.Handle, r.Username), "@"),
		Nickname:    r.Nickname,
		Description: r.Description,
		ImageURL:    firstNonEmpty(r.ProfileImageURL, r.ImageURL),
	}
}

// DecodeCharacters decodes either a bare JSON array or an object wrapping
// the list under "plots", "characters" or "items".
func DecodeCharacters(b []byte) ([]*Character, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []*Character{}, nil
	}

	var list []*RawCharacter
	if b[0] == '[' {
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("error decoding character list: %w", err)
		}
		return NormalizeCharacters(list), nil
	}

	var wrapped struct {
		Plots      []*RawCharacter `json:"plots"`
		Characters []*RawCharacter `json:"characters"`
		Items      []*RawCharacter `json:"items"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, fmt.Errorf("error decoding character page: %w", err)
	}

	switch {
	case len(wrapped.Plots) > 0:
		list = wrapped.Plots
	case len(wrapped.Characters) > 0:
		list = wrapped.Characters
	default:
		list = wrapped.Items
	}
	return NormalizeCharacters(list), nil
}

// parseTimestamp accepts RFC3339 strings, date-only strings and epoch
// numbers (seconds or milliseconds, bare or quoted).
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
	} else {
		s = string(raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		// values past year 2286 in seconds are milliseconds
		if n > 9_999_999_999 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func normalizeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
			if t == "" {
				continue
			}
			k := strings.ToLower(t)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, t)
		}
	}
	return out
}

func firstCount(vals ...*int64) int64 {
	for _, v := range vals {
		if v != nil {
			if *v < 0 {
				return 0
			}
			return *v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
