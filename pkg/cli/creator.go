package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/creatorpulse/pkg/report"
	"github.com/mchmarny/creatorpulse/pkg/score"
	"github.com/urfave/cli/v3"
)

var (
	periodFlag = &cli.StringFlag{
		Name:    "period",
		Aliases: []string{"p"},
		Usage:   "Scoring period [total, recent]",
		Value:   string(score.PeriodTotal),
	}

	recapFlag = &cli.BoolFlag{
		Name:  "recap",
		Usage: "Print the shareable recap instead of the full report",
	}

	interactionsFlag = &cli.StringFlag{
		Name:  "interactions",
		Usage: "Interaction counter to score [regen, original] (default: config interactions)",
	}

	refreshFlag = &cli.BoolFlag{
		Name:  "refresh",
		Usage: "Ignore the cached snapshot and fetch from upstream",
	}

	creatorCmd = &cli.Command{
		Name:      "creator",
		Aliases:   []string{"c"},
		Usage:     "Score a creator and print the report",
		UsageText: "creatorpulse creator [--period recent] [--interactions original] [--recap] <id|@handle|profile-url>",
		Action:    cmdCreator,
		Flags: []cli.Flag{
			periodFlag,
			interactionsFlag,
			recapFlag,
			refreshFlag,
		},
	}

	resolveCmd = &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a handle or profile URL to a creator ID",
		UsageText: "creatorpulse resolve <@handle|profile-url>",
		Action:    cmdResolve,
	}
)

func cmdCreator(ctx context.Context, cmd *cli.Command) error {
	input, err := requireArg(cmd, "creator")
	if err != nil {
		return err
	}
	cfg := getConfig(cmd)

	id, err := cfg.Client.Resolve(ctx, input)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", input, err)
	}

	if cmd.Bool(refreshFlag.Name) {
		if err := cfg.Builder.Refresh(ctx, id); err != nil {
			slog.Warn("failed to drop cached creator", "id", id, "error", err)
		}
	}

	period := score.ParsePeriod(cmd.String(periodFlag.Name))
	r, err := cfg.Builder.BuildMode(ctx, id, period, interactionMode(cmd.String(interactionsFlag.Name)))
	if err != nil {
		return err
	}

	if cmd.Bool(recapFlag.Name) {
		return encode(report.NewRecap(r))
	}
	return encode(r)
}

func cmdResolve(ctx context.Context, cmd *cli.Command) error {
	input, err := requireArg(cmd, "handle")
	if err != nil {
		return err
	}

	id, err := getConfig(cmd).Client.Resolve(ctx, input)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", input, err)
	}
	return encode(map[string]string{"input": input, "id": id})
}
