package report

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/mchmarny/creatorpulse/pkg/score"
)

// CreatorAggregate sums one creator's presence across ranking lists.
type CreatorAggregate struct {
	CreatorID    string   `json:"creator_id" yaml:"creatorID"`
	Handle       string   `json:"handle,omitempty" yaml:"handle,omitempty"`
	Characters   int      `json:"characters" yaml:"characters"`
	Interactions int64    `json:"interactions" yaml:"interactions"`
	BestRank     int      `json:"best_rank" yaml:"bestRank"`
	Kinds        []string `json:"kinds" yaml:"kinds"`
	// ListedScore is the creator score over listed characters only.
	ListedScore float64       `json:"listed_score" yaml:"listedScore"`
	Tier        score.TierKey `json:"tier" yaml:"tier"`
}

// RankingDigest is the static file written by the ranking job.
type RankingDigest struct {
	GeneratedAt time.Time                       `json:"generated_at" yaml:"generatedAt"`
	Rankings    map[string][]*data.RankingEntry `json:"rankings" yaml:"rankings"`
	Creators    []*CreatorAggregate             `json:"creators" yaml:"creators"`
}

// AggregateRankings groups ranking entries by creator. A character listed
// in several kinds counts once. Creators are ordered by interactions, then
// best rank.
func AggregateRankings(rankings map[string][]*data.RankingEntry, cfg *score.Config) []*CreatorAggregate {
	if cfg == nil {
		cfg = score.DefaultConfig()
	}

	kinds := make([]string, 0, len(rankings))
	for k := range rankings {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	byCreator := make(map[string]*CreatorAggregate)
	chars := make(map[string]map[string]*creator.Character)

	for _, kind := range kinds {
		for _, e := range rankings[kind] {
			if e == nil || e.CreatorID == "" {
				continue
			}

			a, ok := byCreator[e.CreatorID]
			if !ok {
				a = &CreatorAggregate{CreatorID: e.CreatorID, Kinds: make([]string, 0)}
				byCreator[e.CreatorID] = a
				chars[e.CreatorID] = make(map[string]*creator.Character)
			}
			if a.Handle == "" {
				a.Handle = e.CreatorHandle
			}
			if a.BestRank == 0 || e.Rank < a.BestRank {
				a.BestRank = e.Rank
			}
			if !contains(a.Kinds, kind) {
				a.Kinds = append(a.Kinds, kind)
			}
			if _, seen := chars[e.CreatorID][e.CharacterID]; !seen {
				chars[e.CreatorID][e.CharacterID] = &creator.Character{
					ID:               e.CharacterID,
					Name:             e.CharacterName,
					CreatorID:        e.CreatorID,
					InteractionCount: e.InteractionCount,
				}
			}
		}
	}

	list := make([]*CreatorAggregate, 0, len(byCreator))
	for id, a := range byCreator {
		listed := make([]*creator.Character, 0, len(chars[id]))
		for _, c := range chars[id] {
			listed = append(listed, c)
		}
		a.Characters = len(listed)
		a.Interactions = creator.SumInteractions(listed)
		a.ListedScore = score.CreatorScore(&creator.Stats{
			PlotInteractionCount: a.Interactions,
			PlotCount:            int64(a.Characters),
		}, listed, cfg.Weights)
		a.Tier = score.Classify(a.ListedScore, cfg.Tiers).Key
		list = append(list, a)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Interactions != list[j].Interactions {
			return list[i].Interactions > list[j].Interactions
		}
		if list[i].BestRank != list[j].BestRank {
			return list[i].BestRank < list[j].BestRank
		}
		return list[i].CreatorID < list[j].CreatorID
	})
	return list
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Ranking kinds mapped onto creator.Ranking fields.
const (
	RankingKindTrending = "trending"
	RankingKindBest     = "best"
	RankingKindNew      = "new"
)

var defaultRankingKinds = []string{RankingKindTrending, RankingKindBest, RankingKindNew}

// StoredRankings reads the latest ranking snapshot of each kind from db.
type StoredRankings struct {
	DB    *sql.DB
	Kinds []string
}

// LatestRankings returns the newest entries per kind. Kinds without a
// snapshot are left out.
func (s *StoredRankings) LatestRankings(ctx context.Context) (map[string][]*data.RankingEntry, error) {
	kinds := s.Kinds
	if len(kinds) == 0 {
		kinds = defaultRankingKinds
	}

	m := make(map[string][]*data.RankingEntry, len(kinds))
	for _, k := range kinds {
		snap, err := data.GetLatestRankingSnapshot(ctx, s.DB, k)
		if err != nil {
			if errors.Is(err, data.ErrSnapshotNotFound) {
				continue
			}
			return nil, err
		}
		m[k] = snap.Entries
	}
	return m, nil
}

// AttachRankings returns copies of chars carrying their positions in
// rankings. Rank delta and the new flag come from the first listed kind in
// trending, best, new order. Characters not listed keep their ranking.
func AttachRankings(chars []*creator.Character, rankings map[string][]*data.RankingEntry) []*creator.Character {
	if len(rankings) == 0 {
		return chars
	}

	byID := make(map[string]*creator.Ranking)
	for _, kind := range defaultRankingKinds {
		for _, e := range rankings[kind] {
			if e == nil || e.CharacterID == "" {
				continue
			}
			r, ok := byID[e.CharacterID]
			if !ok {
				r = &creator.Ranking{RankDelta: e.RankDelta, IsNew: e.IsNew}
				byID[e.CharacterID] = r
			}
			switch kind {
			case RankingKindTrending:
				r.TrendingRank = e.Rank
			case RankingKindBest:
				r.BestRank = e.Rank
			case RankingKindNew:
				r.NewRank = e.Rank
			}
		}
	}

	list := make([]*creator.Character, 0, len(chars))
	for _, c := range chars {
		if c == nil {
			continue
		}
		r, ok := byID[c.ID]
		if !ok {
			list = append(list, c)
			continue
		}
		cp := *c
		cp.Ranking = r
		list = append(list, &cp)
	}
	return list
}

func withRankings(snap *creator.Snapshot, rankings map[string][]*data.RankingEntry) *creator.Snapshot {
	if snap == nil || len(rankings) == 0 {
		return snap
	}
	cp := *snap
	cp.Characters = AttachRankings(snap.Characters, rankings)
	return &cp
}
