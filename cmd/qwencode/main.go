// Package main implements the qwencode CLI: a thin cobra wrapper around
// agent.CoreServices exposing process (run one query through the full
// pipeline), stats (print OutcomeTracker aggregates), retrain-router
// (re-embed the neural router's persisted training examples with the
// configured engine and write them back; recorded outcomes are not
// read), and
// cleanup (TTL-evict old outcome rows). None of these alter the core
// pipeline's contract; they only surface it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qwencode/internal/agent"
	"qwencode/internal/config"
	"qwencode/internal/generation"
	"qwencode/internal/logging"
)

const (
	exitSuccess           = 0
	exitToolFailure       = 1
	exitValidationFailure = 2
	exitUnrecoverable     = 3
)

var (
	verbose     bool
	workspace   string
	configPath  string
	apiKeyFlag  string
	cleanupDays int
	watchConfig bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qwencode",
	Short: "qwencode - tiered code-generation agent",
	Long: `qwencode routes a query through tiered intent classification, adaptive
multi-candidate generation, layered validation, and self-correction,
learning from every run's recorded outcome.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging not initialized: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".qwencode/config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "generation provider API key (overrides env)")

	processCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "hot-reload config.yaml while this command runs")
	cleanupCmd.Flags().IntVar(&cleanupDays, "ttl-days", 0, "override outcomes.ttl_days for this run")

	rootCmd.AddCommand(processCmd, statsCmd, retrainRouterCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUnrecoverable)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func apiKeyFor(cfg *config.Config) string {
	if apiKeyFlag != "" {
		return apiKeyFlag
	}
	envByProvider := map[string]string{
		"anthropic":  "ANTHROPIC_API_KEY",
		"openai":     "OPENAI_API_KEY",
		"gemini":     "GEMINI_API_KEY",
		"xai":        "XAI_API_KEY",
		"zai":        "ZAI_API_KEY",
		"openrouter": "OPENROUTER_API_KEY",
	}
	if env, ok := envByProvider[cfg.Generation.Provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

func buildServices(cfg *config.Config) (*agent.CoreServices, error) {
	client, err := generation.NewClientFromConfig(&cfg.Generation, apiKeyFor(cfg))
	if err != nil {
		return nil, fmt.Errorf("building generation client: %w", err)
	}
	return agent.NewCoreServices(cfg, client, nil)
}

var processCmd = &cobra.Command{
	Use:   "process [query]",
	Short: "run a query through the full generation/validation pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			os.Exit(exitUnrecoverable)
		}
		services, err := buildServices(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		defer services.Close()

		if watchConfig {
			if w, err := services.WatchConfig(configPath); err != nil {
				fmt.Fprintf(os.Stderr, "warning: config watcher not started: %v\n", err)
			} else {
				defer w.Stop()
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		result, err := services.Process(ctx, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitToolFailure)
		}

		if result.ToolCommand {
			fmt.Printf("tool intent: %s (confidence %.2f)\n", result.RouterMatch.TaskType, result.RouterMatch.Confidence)
			return nil
		}

		if result.Best == nil {
			fmt.Fprintln(os.Stderr, "no candidate produced a usable result")
			os.Exit(exitValidationFailure)
		}

		fmt.Println(result.Best.Code)
		fmt.Fprintf(os.Stderr, "\n--- outcome: score=%.2f all_passed=%v iterations=%d total=%s\n",
			result.Best.TotalScore, result.Pool.AllPassed, correctionIterations(result), result.TotalTime)

		if !result.Pool.AllPassed {
			os.Exit(exitValidationFailure)
		}
		return nil
	},
}

func correctionIterations(r *agent.Result) int {
	if r.Correction == nil {
		return 0
	}
	return r.Correction.TotalIterations
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "print OutcomeTracker's learned profile/rule/task-type aggregates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			os.Exit(exitUnrecoverable)
		}
		services, err := buildServices(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		defer services.Close()

		summary, err := services.Tracker.GetLearningSummary(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

var retrainRouterCmd = &cobra.Command{
	Use:   "retrain-router",
	Short: "re-embed the neural router's persisted training examples and write them back",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			os.Exit(exitUnrecoverable)
		}
		services, err := buildServices(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		defer services.Close()

		if services.Neural == nil {
			fmt.Fprintln(os.Stderr, "neural router unavailable: no embedding engine configured")
			os.Exit(exitUnrecoverable)
		}
		if err := services.Neural.Save(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		fmt.Println("neural router index persisted")
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "evict outcome records older than the configured TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			os.Exit(exitUnrecoverable)
		}
		services, err := buildServices(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		defer services.Close()

		ttl := cfg.GetOutcomesTTL()
		if cleanupDays > 0 {
			ttl = time.Duration(cleanupDays) * 24 * time.Hour
		}

		removed, err := services.Tracker.Cleanup(cmd.Context(), ttl)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUnrecoverable)
		}
		fmt.Printf("removed %d outcome records older than %s\n", removed, ttl)
		return nil
	},
}
