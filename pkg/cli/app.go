package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/config"
	"github.com/mchmarny/creatorpulse/pkg/creator"
	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/mchmarny/creatorpulse/pkg/logging"
	"github.com/mchmarny/creatorpulse/pkg/net"
	"github.com/mchmarny/creatorpulse/pkg/platform"
	"github.com/mchmarny/creatorpulse/pkg/report"
	"github.com/mchmarny/creatorpulse/pkg/score"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "creatorpulse"
	appConfigKey = "app-config"
	envPrefix    = "CREATORPULSE_"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat           = formatJSON
	out          io.Writer = os.Stdout

	debugFlag = &cli.BoolFlag{
		Name:    "debug",
		Usage:   "Prints verbose logs (optional, default: false)",
		Sources: cli.EnvVars(envPrefix + "DEBUG"),
	}

	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Colored CLI log output at level [debug, info, warn, error] (optional)",
		Sources: cli.EnvVars(envPrefix + "LOG_LEVEL"),
	}

	configDirFlag = &cli.StringFlag{
		Name:    "config-dir",
		Usage:   "Directory holding config.yaml and the local database (default: $HOME/.creatorpulse)",
		Sources: cli.EnvVars(envPrefix + "CONFIG_DIR"),
	}

	dbFilePathFlag = &cli.StringFlag{
		Name:    "db",
		Usage:   "Path to the Sqlite database file",
		Sources: cli.EnvVars(envPrefix + "DB"),
	}

	cacheDSNFlag = &cli.StringFlag{
		Name:    "cache",
		Usage:   "Cache store DSN (redis://, postgres:// or sqlite file path; default: local database)",
		Sources: cli.EnvVars(envPrefix + "CACHE"),
	}

	upstreamFlag = &cli.StringFlag{
		Name:    "upstream",
		Usage:   "Base URL of the platform API",
		Sources: cli.EnvVars(envPrefix + "UPSTREAM"),
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Usage:   "Output format [json, yaml]",
		Value:   formatJSON,
		Sources: cli.EnvVars(envPrefix + "FORMAT"),
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir     string
	DBPath  string
	Debug   bool
	Conf    *config.Config
	Score   *score.Config
	DB      *sql.DB
	Cache   *data.Cache
	Client  *platform.Client
	Builder *report.Builder

	ownsDB bool
}

func (a *appConfig) Close() {
	if a == nil {
		return
	}
	if a.ownsDB && a.DB != nil {
		a.DB.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Debug("error closing cache", "error", err)
		}
	}
	a.DB, a.Cache = nil, nil
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Creator stats, tiers and badges for a character-roleplay platform",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			logLevelFlag,
			configDirFlag,
			dbFilePathFlag,
			cacheDSNFlag,
			upstreamFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			serverCmd,
			creatorCmd,
			resolveCmd,
			rankCmd,
			stateCmd,
			resetCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(debugFlag.Name) {
				initLogging(true)
			}
			if lvl := cmd.String(logLevelFlag.Name); lvl != "" {
				logging.SetDefaultCLILogger(lvl)
			}

			switch strings.ToLower(cmd.String(formatFlag.Name)) {
			case formatYAML, "yml":
				outputFormat = formatYAML
			default:
				outputFormat = formatJSON
			}

			cfg, err := loadAppConfig(ctx, cmd)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata[appConfigKey] = cfg
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.Close()
			}
			return nil
		},
	}
}

func loadAppConfig(ctx context.Context, cmd *cli.Command) (*appConfig, error) {
	dir := cmd.String(configDirFlag.Name)
	if dir == "" {
		dir = getHomeDir()
	}

	conf, err := config.ReadOrCreate(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if v := cmd.String(upstreamFlag.Name); v != "" {
		conf.Upstream = v
	}
	if v := cmd.String(cacheDSNFlag.Name); v != "" {
		conf.CacheDSN = v
	}

	dbPath := cmd.String(dbFilePathFlag.Name)
	if dbPath == "" {
		dbPath = filepath.Join(dir, data.DataFileName)
	}

	return newAppConfig(ctx, dir, dbPath, conf, cmd.Bool(debugFlag.Name))
}

// newAppConfig opens the cache store and the local database and builds the
// upstream client and report builder.
func newAppConfig(ctx context.Context, dir, dbPath string, conf *config.Config, debug bool) (*appConfig, error) {
	a := &appConfig{
		Dir:    dir,
		DBPath: dbPath,
		Debug:  debug,
		Conf:   conf,
		Score:  score.DefaultConfig(),
	}
	a.Score.RecentWindow = conf.RecentWindow()
	a.Score.Interactions = creator.ParseInteractionMode(conf.Interactions)

	store, err := data.OpenStore(ctx, conf.CacheDSN, dbPath, conf.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	a.Cache = data.NewCache(store, conf.CacheTTL)

	// ranking snapshots share the sqlite cache database when there is one
	if s, ok := store.(*data.SQLStore); ok && s.Dialect().Name == data.DialectSQLite.Name {
		a.DB = s.DB()
	} else {
		if err := data.Init(dbPath); err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		db, err := data.GetDB(dbPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.DB, a.ownsDB = db, true
	}

	n := net.NewClient(net.WithUserAgent(conf.UserAgent))
	client, err := platform.NewClient(conf.Upstream, platform.WithWebURL(conf.WebURL), platform.WithNetClient(n))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Client = client
	a.Builder = report.NewBuilder(client, a.Cache, a.Score,
		report.WithRankings(&report.StoredRankings{DB: a.DB, Kinds: conf.RankingKinds}))

	slog.Debug("app config", "dir", dir, "db", dbPath, "upstream", conf.Upstream, "cache_ttl", conf.CacheTTL.String())
	return a, nil
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	slog.SetDefault(logging.NewServerLogger(os.Stdout, level))
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(config.DefaultDirName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created dir", "path", dir)
	}
	return dir
}

func encode(v any) error {
	if outputFormat == formatYAML {
		e := yaml.NewEncoder(out)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(out)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().First())
	if v == "" {
		return "", errors.New(name + " argument required")
	}
	return v, nil
}

func timeNow() time.Time {
	return time.Now().UTC()
}
