package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/mchmarny/creatorpulse/pkg/platform"
	"github.com/mchmarny/creatorpulse/pkg/report"
	"github.com/mchmarny/creatorpulse/pkg/score"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const rankFetchConcurrency = 3

var (
	rankKindsFlag = &cli.StringSliceFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "Ranking kinds to fetch [trending, best, new] (default: config ranking_kinds)",
	}

	rankOutputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Path of the ranking digest file (default: config ranking_output)",
		Sources: cli.EnvVars(envPrefix + "RANKING_OUTPUT"),
	}

	rankKeepFlag = &cli.IntFlag{
		Name:  "keep",
		Usage: "Snapshots to keep per kind (default: config ranking_keep)",
	}

	rankCmd = &cli.Command{
		Name:   "rank",
		Usage:  "Snapshot platform rankings and write the creator digest",
		Action: cmdRank,
		Flags: []cli.Flag{
			rankKindsFlag,
			rankOutputFlag,
			rankKeepFlag,
		},
	}
)

type rankingFetcher interface {
	GetRanking(ctx context.Context, kind platform.RankingKind) ([]*platform.RankedCharacter, error)
}

// rankJob snapshots ranking lists and aggregates them per creator.
type rankJob struct {
	fetcher rankingFetcher
	db      *sql.DB
	cfg     *score.Config
	keep    int
	now     func() time.Time
}

func cmdRank(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	names := cmd.StringSlice(rankKindsFlag.Name)
	if len(names) == 0 {
		names = cfg.Conf.RankingKinds
	}
	kinds, err := parseKinds(names)
	if err != nil {
		return err
	}

	keep := cfg.Conf.RankingKeep
	if cmd.IsSet(rankKeepFlag.Name) {
		keep = cmd.Int(rankKeepFlag.Name)
	}

	output := cmd.String(rankOutputFlag.Name)
	if output == "" {
		output = cfg.Conf.RankingOutput
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(cfg.Dir, output)
	}

	job := &rankJob{fetcher: cfg.Client, db: cfg.DB, cfg: cfg.Score, keep: keep, now: timeNow}
	digest, err := job.run(ctx, kinds)
	if err != nil {
		return err
	}

	if err := writeDigest(output, digest); err != nil {
		return err
	}

	slog.Info("ranking digest written", "path", output, "kinds", len(digest.Rankings), "creators", len(digest.Creators))
	return encode(map[string]any{
		"output":   output,
		"kinds":    names,
		"creators": len(digest.Creators),
	})
}

func parseKinds(names []string) ([]platform.RankingKind, error) {
	if len(names) == 0 {
		return platform.RankingKinds, nil
	}
	kinds := make([]platform.RankingKind, 0, len(names))
	seen := make(map[platform.RankingKind]bool, len(names))
	for _, n := range names {
		k, err := platform.ParseRankingKind(n)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// run fetches every kind concurrently, then stores the snapshots in order.
func (j *rankJob) run(ctx context.Context, kinds []platform.RankingKind) (*report.RankingDigest, error) {
	lists := make([][]*platform.RankedCharacter, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rankFetchConcurrency)
	for i, k := range kinds {
		g.Go(func() error {
			list, err := j.fetcher.GetRanking(gctx, k)
			if err != nil {
				return fmt.Errorf("error fetching %s ranking: %w", k, err)
			}
			lists[i] = list
			slog.Debug("ranking fetched", "kind", k, "entries", len(list))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := j.now()
	digest := &report.RankingDigest{
		GeneratedAt: now,
		Rankings:    make(map[string][]*data.RankingEntry, len(kinds)),
	}

	for i, k := range kinds {
		entries := toRankingEntries(lists[i])
		if err := j.snapshot(ctx, string(k), now, entries); err != nil {
			return nil, err
		}
		digest.Rankings[string(k)] = entries
	}

	digest.Creators = report.AggregateRankings(digest.Rankings, j.cfg)
	return digest, nil
}

func (j *rankJob) snapshot(ctx context.Context, kind string, now time.Time, entries []*data.RankingEntry) error {
	prev, err := data.GetPreviousRanks(ctx, j.db, kind)
	if err != nil {
		return fmt.Errorf("error loading previous %s ranks: %w", kind, err)
	}
	data.ApplyRankDeltas(entries, prev)

	id, err := data.SaveRankingSnapshot(ctx, j.db, kind, now, entries)
	if err != nil {
		return err
	}

	pruned, err := data.PruneRankingSnapshots(ctx, j.db, kind, j.keep)
	if err != nil {
		return err
	}
	slog.Debug("ranking snapshot saved", "kind", kind, "id", id, "entries", len(entries), "pruned", pruned)
	return nil
}

func toRankingEntries(list []*platform.RankedCharacter) []*data.RankingEntry {
	entries := make([]*data.RankingEntry, 0, len(list))
	for _, rc := range list {
		if rc == nil || rc.Character == nil {
			continue
		}
		entries = append(entries, &data.RankingEntry{
			Rank:             rc.Rank,
			CharacterID:      rc.Character.ID,
			CharacterName:    rc.Character.Name,
			CreatorID:        rc.Character.CreatorID,
			CreatorHandle:    rc.CreatorHandle,
			InteractionCount: rc.Character.InteractionCount,
		})
	}
	return entries
}

// writeDigest replaces path atomically so readers never see a partial file.
func writeDigest(path string, d *report.RankingDigest) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".rankings-*.json")
	if err != nil {
		return fmt.Errorf("error creating temp digest: %w", err)
	}
	tmp := f.Name()

	e := json.NewEncoder(f)
	e.SetIndent("", "  ")
	if err := e.Encode(d); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("error encoding digest: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error closing digest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error writing digest %s: %w", path, err)
	}
	return nil
}
