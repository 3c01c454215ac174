package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/urfave/cli/v3"
)

var stateCmd = &cli.Command{
	Name:   "state",
	Usage:  "Print local database row counts",
	Action: cmdState,
}

func cmdState(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	state, err := data.GetDataState(cfg.DB)
	if err != nil {
		return fmt.Errorf("getting data state: %w", err)
	}
	return encode(map[string]any{
		"db":       cfg.DBPath,
		"cache":    data.StoreKind(cfg.Conf.CacheDSN),
		"counts":   state,
		"upstream": cfg.Conf.Upstream,
	})
}
