package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/infrastructure/logging"
)

// cli carries state shared by every subcommand
type cli struct {
	cfg    *config.Config
	logger zerolog.Logger
	ui     *UI

	catalogPath  string
	artifactsDir string
	verbose      bool
	noColor      bool
	jsonOutput   bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "pricectl",
		Short:         "PriceLens - phone price model training and lookup",
		Long:          "pricectl trains the phone price regressor from the catalog, saves its artifacts,\nand answers price, market and model questions from the terminal.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.catalogPath, "catalog", "", "catalog TSV file (overrides PRICELENS_CATALOG_PATH)")
	flags.StringVar(&c.artifactsDir, "artifacts", "", "artifact directory (overrides PRICELENS_ARTIFACTS_DIR)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&c.jsonOutput, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newTrainCmd(c),
		newPredictCmd(c),
		newStatsCmd(c),
		newInspectCmd(c),
	)
	return root
}

func (c *cli) init(stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.catalogPath != "" {
		cfg.Catalog.Path = c.catalogPath
	}
	if c.artifactsDir != "" {
		cfg.Artifacts.Dir = c.artifactsDir
	}
	c.cfg = cfg

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	c.logger = logging.New(logging.Config{
		Level:  level,
		Format: "console",
		Output: stderr,
	})

	if c.noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	c.ui = NewUI(stdout, stderr, c.jsonOutput)
	return nil
}
