package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/markstyle/internal/config"
	"github.com/zjrosen/markstyle/internal/flags"
	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/pipeline"
	"github.com/zjrosen/markstyle/internal/tracing"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
	configErr error

	flagRegistry   *flags.Registry
	tracerProvider *tracing.Provider
	logCleanup     func()
)

var rootCmd = &cobra.Command{
	Use:   "markstyle [file]",
	Short: "Style markdown documents for the terminal",
	Long: `markstyle parses a markdown document, styles it with a theme and prints it
with ANSI colours. Fenced code blocks are syntax highlighted.

Running markstyle with a file is the same as 'markstyle render FILE'.`,
	Version:            version,
	Args:               cobra.MaximumNArgs(1),
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runRender(cmd, args)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/markstyle/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (also MARKSTYLE_DEBUG=1)")
	rootCmd.PersistentFlags().IntP("width", "w", 0,
		"wrap prose at this column (overrides render.width)")
	rootCmd.PersistentFlags().StringP("theme", "t", "",
		"theme preset (overrides theme.preset)")
	rootCmd.PersistentFlags().String("color", "",
		"color profile: auto, truecolor, ansi256, ansi, ascii")

	// Bind flags to viper
	_ = viper.BindPFlag("render.width", rootCmd.PersistentFlags().Lookup("width"))
	_ = viper.BindPFlag("theme.preset", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("render.color_profile", rootCmd.PersistentFlags().Lookup("color"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("theme.preset", defaults.Theme.Preset)
	viper.SetDefault("highlight.style", defaults.Highlight.Style)
	viper.SetDefault("highlight.cache_ttl", defaults.Highlight.CacheTTL)
	viper.SetDefault("highlight.cache_cleanup", defaults.Highlight.CacheCleanup)
	viper.SetDefault("highlight.workers", defaults.Highlight.Workers)
	viper.SetDefault("highlight.disabled", defaults.Highlight.Disabled)
	viper.SetDefault("render.width", defaults.Render.Width)
	viper.SetDefault("render.color_profile", defaults.Render.ColorProfile)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("log_level", defaults.LogLevel)
	for name, enabled := range defaults.Flags {
		viper.SetDefault("flags."+name, enabled)
	}

	// MARKSTYLE_RENDER_WIDTH=100 overrides render.width
	viper.SetEnvPrefix("MARKSTYLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .markstyle/config.yaml (current directory)
		// 2. ~/.config/markstyle/config.yaml (user config)
		if _, err := os.Stat(".markstyle/config.yaml"); err == nil {
			viper.SetConfigFile(".markstyle/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "markstyle"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		// A missing config file just means defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
		}
	}

	cfg = config.Config{}
	if err := viper.Unmarshal(&cfg); err != nil && configErr == nil {
		configErr = fmt.Errorf("decoding config: %w", err)
	}
}

// setup runs before every command: it validates the config and starts
// logging and tracing.
func setup(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if debugFlag || os.Getenv("MARKSTYLE_DEBUG") != "" {
		logPath := os.Getenv("MARKSTYLE_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.InitWithTeaLog(logPath, "markstyle")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.SetMinLevel(log.ParseLevel(cfg.LogLevel))
		debugFlag = true
		log.Info(log.CatConfig, "markstyle starting", "command", cmd.Name(), "config", viper.ConfigFileUsed())
	}

	flagRegistry = flags.New(cfg.Flags)

	tc := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	}
	if tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tc)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	tracerProvider = provider
	if provider.Enabled() {
		log.Info(log.CatTrace, "tracing enabled", "exporter", tc.Exporter)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	var err error
	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = tracerProvider.Shutdown(ctx)
		cancel()
		tracerProvider = nil
	}
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return err
}

// newPipeline builds the shared pipeline from the loaded config.
func newPipeline() (*pipeline.Pipeline, error) {
	p := tracerProvider
	if p == nil {
		p = tracing.Disabled()
	}
	return pipeline.New(cfg, flagRegistry, p.Tracer())
}

// readDocument reads path, or stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: document path given by the user
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
