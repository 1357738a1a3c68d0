package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/logging"
	"github.com/ppiankov/groundcheck/internal/model"
)

var (
	cfgFile  string
	verbose  bool
	logLevel string
	logJSON  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "groundcheck",
	Short: "Groundcheck - check numeric claims in LLM answers against tool data",
	Long: `Groundcheck validates the numbers in an LLM answer against the tool
results the answer was built from, and corrects the ones that disagree.

It parses counts, percentages, uptime figures and aggregates out of the
answer, finds the tool output each claim refers to, and rewrites wrong
values in place. Numbered lists whose length contradicts a stated count
are trimmed or marked incomplete.

Groundcheck never invents data: a claim without matching tool output is
left as written and reported as unverified.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.groundcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".groundcheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps GROUNDCHECK_* variables onto config keys. Keys are bound
// explicitly so Unmarshal sees them even when no config file sets them.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("GROUNDCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"validation.count_tolerance",
		"validation.percentage_tolerance",
		"validation.auto_correct",
		"validation.block_on_critical",
		"llm.provider",
		"llm.model",
		"llm.base_url",
		"tools.base_url",
		"tools.http_proxy",
		"tools.https_proxy",
		"tools.no_proxy",
		"logging.level",
		"logging.json",
		"server.address",
	} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("llm.api_key", "GROUNDCHECK_LLM_API_KEY", "OPENAI_API_KEY")
}

// loadConfig layers viper settings over the defaults and validates the result
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger for a command
func setup() (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	switch {
	case logLevel != "":
		cfg.Logging.Level = logLevel
	case verbose:
		cfg.Logging.Level = "debug"
	}
	if logJSON {
		cfg.Logging.JSON = true
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
