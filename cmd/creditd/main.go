package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/duskolend/creditd/internal/config"
)

const (
	appName = "creditd"
	version = "v1.0.0"
)

var (
	configPath string
	logLevel   string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Credit-risk aggregation engine for decentralized lending",
		Version: version,
		Long: `creditd fuses a base creditworthiness score with an independent
wash-trade detection signal into a single lending decision: a combined
score, a risk tier, a recommended interest rate, and a maximum loan
amount.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyLogLevel(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(blacklistCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig reads the config file or falls back to defaults, then applies
// the config-level log setting unless the flag overrode it. The --config
// flag wins over the CREDITD_CONFIG environment variable.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CREDITD_CONFIG")
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if logLevel == "" {
		if err := applyLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func applyLogLevel(level string) error {
	if level == "" {
		return nil
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}
