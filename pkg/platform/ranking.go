package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mchmarny/creatorpulse/pkg/creator"
)

// RankingKind names a platform ranking list.
type RankingKind string

const (
	RankingTrending RankingKind = "trending"
	RankingBest     RankingKind = "best"
	RankingNew      RankingKind = "new"

	rankingLimit = 100
)

// RankingKinds lists every supported kind in display order.
var RankingKinds = []RankingKind{RankingTrending, RankingBest, RankingNew}

// ParseRankingKind validates s.
func ParseRankingKind(s string) (RankingKind, error) {
	k := RankingKind(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range RankingKinds {
		if k == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid ranking kind: %q (valid: trending, best, new)", s)
}

// RankedCharacter is one position in a ranking list.
type RankedCharacter struct {
	Rank          int                `json:"rank" yaml:"rank"`
	Character     *creator.Character `json:"character" yaml:"character"`
	CreatorHandle string             `json:"creator_handle,omitempty" yaml:"creatorHandle,omitempty"`
}

type rawRankedCharacter struct {
	creator.RawCharacter
	Creator *creator.RawProfile `json:"creator"`
}

// GetRanking returns the list for kind ordered by rank, starting at 1.
func (c *Client) GetRanking(ctx context.Context, kind RankingKind) ([]*RankedCharacter, error) {
	if _, err := ParseRankingKind(string(kind)); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("type", string(kind))
	q.Set("limit", strconv.Itoa(rankingLimit))

	b, err := c.getBody(ctx, "ranking", c.apiURL("v1", "plots", "ranking")+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	raw, err := decodeRanked(b)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s ranking: %w", kind, err)
	}

	list := make([]*RankedCharacter, 0, len(raw))
	for _, r := range raw {
		ch := creator.NormalizeCharacter(&r.RawCharacter)
		if ch == nil {
			continue
		}
		rc := &RankedCharacter{Rank: len(list) + 1, Character: ch}
		if r.Creator != nil {
			p := creator.NormalizeProfile(r.Creator)
			rc.CreatorHandle = p.Handle
			if ch.CreatorID == "" {
				ch.CreatorID = p.ID
			}
		}
		list = append(list, rc)
	}
	return list, nil
}

func decodeRanked(b []byte) ([]*rawRankedCharacter, error) {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var list []*rawRankedCharacter
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var wrapped struct {
		Plots      []*rawRankedCharacter `json:"plots"`
		Characters []*rawRankedCharacter `json:"characters"`
		Items      []*rawRankedCharacter `json:"items"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case len(wrapped.Plots) > 0:
		return wrapped.Plots, nil
	case len(wrapped.Characters) > 0:
		return wrapped.Characters, nil
	default:
		return wrapped.Items, nil
	}
}
