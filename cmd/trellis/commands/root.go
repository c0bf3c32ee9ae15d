package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/config"
	"github.com/dyluth/trellis/internal/llm"
	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/pkg/blackboard"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trellis",
	Short: "Trellis - hybrid reasoning engine for your goal hierarchy",
	Long: `Trellis turns a personal goal hierarchy (pillars, areas, projects,
tasks) into ranked, explained decisions.

It evaluates deterministic rules against each entity's full context,
escalates ambiguous cases to a generative capability when one is
configured, and stores every conclusion as a confidence-scored insight
on a Redis blackboard.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	// e.g., "trellis --depth minimal" instead of "trellis analyze task <id> --depth minimal"
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Path to the trellis configuration file")
}

// loadConfig reads the configuration or returns a printer-formatted error
// pointing the user at trellis init.
func loadConfig() (*config.TrellisConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"failed to load configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Create a starter configuration:\n  trellis init"},
		)
	}
	return cfg, nil
}

// connect builds a blackboard client from the configuration and verifies
// Redis connectivity.
func connect(cfg *config.TrellisConfig) (*blackboard.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client, err := blackboard.NewClient(opts, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create blackboard client: %w", err)
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.Addr),
			map[string]string{"Instance": cfg.Instance},
			[]string{"Check that Redis is running, or set TRELLIS_REDIS_ADDR"},
		)
	}

	return client, nil
}

// contextWithTimeout bounds one-shot store operations.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// generator builds the optional generative capability client. Returns nil
// when no endpoint is configured; analyses then run rule-only.
func generator(cfg *config.TrellisConfig) llm.Generator {
	if cfg.LLM.Endpoint == "" {
		return nil
	}
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	return llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.APIKey, timeout)
}
