package main

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/duskolend/creditd/internal/config"
	httpserver "github.com/duskolend/creditd/internal/interfaces/http"
	"github.com/duskolend/creditd/internal/interfaces/http/handlers"
	"github.com/duskolend/creditd/internal/metrics"
	"github.com/duskolend/creditd/internal/persistence/audit"
	"github.com/duskolend/creditd/internal/persistence/snapshot"
	"github.com/duskolend/creditd/internal/providers/basescore"
	"github.com/duskolend/creditd/internal/providers/washtrade"
	"github.com/duskolend/creditd/internal/score"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the creditd API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			m := metrics.NewRegistry()
			engine, snapshots, cleanup, err := buildEngine(cfg, m)
			if err != nil {
				return err
			}
			defer cleanup()

			providerURLs := map[string]string{
				"base_score": cfg.Providers["base_score"].BaseURL,
				"wash_trade": cfg.Providers["wash_trade"].BaseURL,
			}

			h := handlers.NewHandlers(engine, snapshots, version, providerURLs)
			server := httpserver.NewServer(httpserver.ServerConfig{
				Host:         cfg.Server.Host,
				Port:         cfg.Server.Port,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
				IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
			}, h, m)

			return server.Start(cmd.Context())
		},
	}
}

// buildEngine assembles the fusion engine and its optional side stores
// from configuration. The returned cleanup closes whatever was opened.
func buildEngine(cfg *config.Config, m *metrics.Registry) (*score.Engine, *snapshot.Store, func(), error) {
	baseCfg := cfg.Providers["base_score"]
	washCfg := cfg.Providers["wash_trade"]

	baseClient := basescore.NewClient(basescore.Config{
		BaseURL:          baseCfg.BaseURL,
		RequestTimeout:   baseCfg.Timeout(),
		RateLimitRPS:     baseCfg.RPS,
		RateLimitBurst:   baseCfg.Burst,
		FailureThreshold: baseCfg.FailureThreshold,
	}, m)

	washClient := washtrade.NewClient(washtrade.Config{
		BaseURL:          washCfg.BaseURL,
		RequestTimeout:   washCfg.Timeout(),
		RateLimitRPS:     washCfg.RPS,
		RateLimitBurst:   washCfg.Burst,
		FailureThreshold: washCfg.FailureThreshold,
	}, m)

	opts := []score.Option{score.WithMetrics(m)}
	cleanup := func() {}

	if cfg.Audit.DSN != "" {
		recorder, err := audit.Open(cfg.Audit.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, score.WithRecorder(recorder))
		cleanup = func() { recorder.Close() }
		log.Info().Msg("decision audit log enabled")
	}

	var snapshots *snapshot.Store
	if cfg.Snapshot.RedisAddr != "" {
		snapshots = snapshot.New(cfg.Snapshot.RedisAddr, cfg.SnapshotTTL())
		opts = append(opts, score.WithSnapshots(snapshots))
		log.Info().Str("addr", cfg.Snapshot.RedisAddr).Msg("snapshot store enabled")
	}

	engine := score.NewEngine(baseClient, washClient, score.Config{
		BaseRate:     cfg.Engine.BaseRate,
		DefaultToken: cfg.Engine.DefaultToken,
		Tolerance:    cfg.Engine.Tolerance,
	}, opts...)

	return engine, snapshots, cleanup, nil
}
