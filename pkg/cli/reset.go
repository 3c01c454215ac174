package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/urfave/cli/v3"
)

var (
	in io.Reader = os.Stdin

	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:   "reset",
		Usage:  "Delete cached creators and ranking snapshots",
		Flags:  []cli.Flag{yesFlag},
		Action: cmdReset,
	}
)

func cmdReset(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if !cmd.Bool(yesFlag.Name) {
		fmt.Fprintf(out, "This will permanently delete all cached data and ranking snapshots in %s\n", cfg.DBPath)
		fmt.Fprint(out, "Are you sure? [y/N]: ")

		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := data.ResetData(cfg.DB); err != nil {
		return fmt.Errorf("resetting database: %w", err)
	}

	// external stores only drop what has expired
	n, err := cfg.Cache.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}

	slog.Info("data reset", "path", cfg.DBPath, "purged", n)
	fmt.Fprintln(out, "Reset complete.")
	return nil
}
