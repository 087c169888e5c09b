// Package cli implements the command-line interface for seqarc.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/seqarc/internal/config"
	"github.com/kilupskalvis/seqarc/pkg/seqarc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Logger *zap.Logger
}

// Close flushes the logger
func (c *cmdContext) Close() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

var (
	flagConfig   string
	flagPrefetch bool
	flagVerbose  bool
	flagNoColor  bool
)

// initContext loads configuration and builds the logger
func initContext() *cmdContext {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		exitError("%v", err)
	}

	level := cfg.LogLevel
	if flagVerbose {
		level = "debug"
	}
	logger, err := newLogger(level)
	if err != nil {
		exitError("failed to create logger: %v", err)
	}
	if cfg.Path() != "" {
		logger.Debug("loaded config", zap.String("path", cfg.Path()))
	}
	seqarc.SetLogger(logger)

	return &cmdContext{Config: cfg, Logger: logger}
}

// openArchive opens path with the configured cache and prefetch settings
func (c *cmdContext) openArchive(path string) *seqarc.Archive {
	a := seqarc.New(seqarc.WithCacheBlocks(c.Config.CacheBlocks))
	if !a.Open(path, c.prefetch()) {
		exitError("cannot open archive: %v", a.Err())
	}
	return a
}

func (c *cmdContext) prefetch() bool {
	return flagPrefetch || c.Config.Prefetch
}

var rootCmd = &cobra.Command{
	Use:   "seqarc",
	Short: "Random access to compressed genome archives",
	Long: `seqarc reads compressed multi-sample sequence archives. List the samples
and contigs an archive holds, query contig lengths and extract any range of
sequence without decompressing the whole archive.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagNoColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: nearest "+config.FileName+")")
	rootCmd.PersistentFlags().BoolVar(&flagPrefetch, "prefetch", false, "Decode the whole archive when opening it")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(contigsCmd)
	rootCmd.AddCommand(lengthCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(verifyCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
