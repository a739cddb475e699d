package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const version = "leadmaster v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "leadmaster",
	Short: "Leadmaster - construction lead signals from the news",
	Long: `Leadmaster watches news and feed searches for signs that a company is
about to build: plant expansions, land purchases, new distribution centers.

Headlines are scored for relevance, grouped per company, summarised and
written to a local database of prospects and their supporting signals.

Run a targeted lookup for one company, a broad keyword scan, or serve the
HTTP API for the dashboard.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(verbose)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute runs the root command. Interrupt and SIGTERM cancel the command
// context, which stops a running scan at its next stage boundary.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number for Leadmaster.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.leadmaster/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger; verbose switches to the
// development encoder at debug level
func newLogger(verbose bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, eris.Wrap(err, "cli: build logger")
	}
	return logger, nil
}

// configDir is ~/.leadmaster
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "cli: find home directory")
	}
	return filepath.Join(home, ".leadmaster"), nil
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// envKeys are the config keys that can be set from LEADMASTER_SECTION_KEY
// variables, with the conventional names also accepted for some of them
var envKeys = map[string][]string{
	"llm.provider":         nil,
	"llm.model":            nil,
	"llm.api_key":          {"OPENAI_API_KEY"},
	"llm.base_url":         {"OLLAMA_BASE_URL"},
	"budget.daily_cents":   {"DAILY_BUDGET_CENTS"},
	"search.max_results":   {"MAX_RESULTS_PER_QUERY"},
	"search.newsapi_key":   {"NEWSAPI_KEY"},
	"search.max_prospects": nil,
	"search.concurrency":   nil,
	"cache.backend":        nil,
	"cache.redis_addr":     {"REDIS_ADDR"},
	"store.path":           nil,
	"summary.policy":       nil,
	"notify.nats_url":      {"NATS_URL"},
	"http.http_proxy":      {"HTTP_PROXY"},
	"http.https_proxy":     {"HTTPS_PROXY"},
	"http.no_proxy":        {"NO_PROXY"},
}

// bindEnv binds envKeys on v. The prefixed form wins over an alias.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("LEADMASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envKeys {
		names := []string{key, "LEADMASTER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		_ = v.BindEnv(append(names, aliases...)...)
	}
}

// loadConfig overlays the config file and environment onto the defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "cli: decode config")
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if cfg.Search.MaxResults <= 0 {
		return nil, eris.Errorf("cli: search.max_results must be positive, got %d", cfg.Search.MaxResults)
	}
	if cfg.Budget.DailyCents < 0 {
		return nil, eris.Errorf("cli: budget.daily_cents must not be negative, got %d", cfg.Budget.DailyCents)
	}
	return cfg, nil
}
