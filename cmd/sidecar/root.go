package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/gke-token-sidecar/internal/config"
	"github.com/obsidianstack/gke-token-sidecar/internal/kubeconfig"
	"github.com/obsidianstack/gke-token-sidecar/internal/metrics"
	"github.com/obsidianstack/gke-token-sidecar/internal/refresher"
	"github.com/obsidianstack/gke-token-sidecar/internal/token"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// healthWindow is how many intervals may pass without a successful refresh
// before /healthz reports stale.
const healthWindow = 3

// errReported marks failures that were already logged.
var errReported = errors.New("reported")

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "gke-token-sidecar",
		Short:         "Keep a kubeconfig for a remote GKE cluster filled with a fresh access token",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoop(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file; environment variables take precedence")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Refresh the kubeconfig every interval until interrupted (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runLoop(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "once",
			Short: "Run a single refresh cycle and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), configPath)
			},
		},
		newRenderCmd(out, &configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Args:  cobra.NoArgs,
			Run: func(*cobra.Command, []string) {
				fmt.Fprintln(out, version)
			},
		},
	)
	return root
}

func newRenderCmd(out io.Writer, configPath *string) *cobra.Command {
	var tok string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the kubeconfig for --token without calling the identity CLI",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			data, err := kubeconfig.Render(kubeconfig.Build(cfg.Endpoint, cfg.CAData, tok), cfg.Format)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&tok, "token", "", "bearer token to place in the document")
	return cmd
}

// setupLogger installs a JSON slog logger on stdout as the default.
func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

// loadConfig loads the config and logs a failure exactly once.
func loadConfig(path string) (config.Config, error) {
	setupLogger(config.DefaultLogLevel)

	cfg, err := config.Load(path)
	if err != nil {
		var cerr *config.ConfigurationError
		switch {
		case errors.As(err, &cerr) && len(cerr.Missing) > 0:
			slog.Error("Missing GKE_CLUSTER_ENDPOINT or GKE_CLUSTER_CA", "missing", cerr.Missing)
		default:
			slog.Error("failed to load config", "err", err)
		}
		return config.Config{}, errReported
	}

	setupLogger(cfg.LogLevel)
	return cfg, nil
}

// newSink returns the sink that logs and counts every cycle. A nil health
// gate is fine for one-shot runs where nothing serves /healthz.
func newSink(cfg config.Config, health *metrics.Health) refresher.LogSink {
	return refresher.LogSink{
		Logger:  slog.Default(),
		Path:    cfg.KubeconfigPath,
		Metrics: &metrics.Recorder{Health: health},
	}
}

func newRefresher(cfg config.Config, sink refresher.Sink) *refresher.Refresher {
	mode, _ := cfg.FileMode() // checked by config.Load
	return refresher.New(cfg,
		token.New(cfg.TokenArgs(), cfg.TokenTimeout),
		kubeconfig.Writer{Format: cfg.Format, Validate: cfg.Validate, Mode: mode},
		sink,
	)
}

func runLoop(parent context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	slog.Info("gke-token-sidecar starting",
		"version", version,
		"endpoint", cfg.Endpoint,
		"path", cfg.KubeconfigPath,
		"interval", cfg.Interval,
		"format", cfg.Format,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	health := metrics.NewHealth(healthWindow * cfg.Interval)
	r := newRefresher(cfg, newSink(cfg, health))

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, health); err != nil {
				slog.Error("metrics server stopped", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}

	if cfg.WatchOutput {
		w, err := kubeconfig.NewWatcher(cfg.KubeconfigPath)
		if err != nil {
			slog.Warn("kubeconfig watcher disabled", "err", err)
		} else {
			go func() {
				if err := w.Run(ctx, r.Trigger); err != nil {
					slog.Error("kubeconfig watcher stopped", "err", err)
				}
			}()
		}
	}

	if err := r.Run(ctx); err != nil {
		slog.Error("refresher stopped", "err", err)
		return errReported
	}
	slog.Info("gke-token-sidecar shutting down")
	return nil
}

func runOnce(parent context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sink := newSink(cfg, nil)
	res := newRefresher(cfg, sink).RunOnce(ctx)
	sink.Record(res)
	if !res.OK() {
		return errReported
	}
	return nil
}
