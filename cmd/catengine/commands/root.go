// Package commands implements the catengine CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/catalogmind/catalog-engine/cmd/catengine/ui"
	"github.com/catalogmind/catalog-engine/internal/config"
	"github.com/catalogmind/catalog-engine/internal/observability"
	"github.com/catalogmind/catalog-engine/pkg/engine"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "catengine",
	Short: "Catalog Engine - ask questions about your PDF product catalogs",
	Long: `Catalog Engine ingests PDF product catalogs, extracts their content with a
multimodal language model, and answers natural language product questions
against the stored catalogs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor, verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newEngine loads configuration and builds a fully wired engine. The CLI
// logs quietly unless --verbose is set.
func newEngine(ctx context.Context) (*engine.Engine, *config.Config, *observability.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	level := "warn"
	if verbose {
		level = cfg.Observability.LogLevel
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "catengine",
	})

	eng, err := engine.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return eng, cfg, logger, nil
}
