package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
	serverAddressDefault      = "127.0.0.1"
)

var (
	portFlag = &cli.IntFlag{
		Name:    "port",
		Usage:   "Port on which the server will listen",
		Value:   serverPortDefault,
		Sources: cli.EnvVars(envPrefix + "PORT"),
	}

	addressFlag = &cli.StringFlag{
		Name:    "address",
		Usage:   "Address on which the server will listen",
		Value:   serverAddressDefault,
		Sources: cli.EnvVars(envPrefix + "ADDRESS"),
	}

	serverCmd = &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Start the dashboard API server",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
			addressFlag,
		},
	}
)

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	address := fmt.Sprintf("%s:%d", cmd.String(addressFlag.Name), cmd.Int(portFlag.Name))

	limiter := newIPRateLimiter(cfg.Conf.RateLimit, time.Minute)
	stop := limiter.startCleanup(ctx, time.Minute)
	defer stop()

	s := &http.Server{
		Addr:           address,
		Handler:        withMiddleware(makeRouter(cfg), cfg.Conf.CORSOrigins, limiter),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
			done <- syscall.SIGTERM
		}
	}()

	slog.Info("server started", "address", "http://"+address, "upstream", cfg.Conf.Upstream)

	select {
	case <-done:
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(cfg *appConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Creator API
	mux.HandleFunc("GET /api/resolve", resolveAPIHandler(cfg.Client))
	mux.HandleFunc("GET /api/creators/{id}", creatorAPIHandler(cfg.Builder))
	mux.HandleFunc("GET /api/creators/{id}/recap", recapAPIHandler(cfg.Builder))
	mux.HandleFunc("GET /api/creators/{id}/characters", charactersAPIHandler(cfg.Builder))

	// Rankings
	mux.HandleFunc("GET /api/rankings/{kind}", rankingAPIHandler(cfg.DB))

	// Upstream pass-through
	mux.HandleFunc("GET /api/proxy/{path...}", proxyAPIHandler(cfg.Client))

	return mux
}
