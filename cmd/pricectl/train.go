package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/infrastructure/ann"
	"github.com/pricelens/backend/internal/infrastructure/artifact"
	"github.com/pricelens/backend/internal/usecase"
)

func newTrainCmd(c *cli) *cobra.Command {
	var (
		epochs int
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the price regressor and save its artifacts",
		Long: `Train loads the catalog, fits the brand encoder, feature scaler and price
regressor, evaluates it on a held-out split and writes the artifacts.
Existing artifacts are replaced only after training succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("epochs") {
				c.cfg.Training.Epochs = epochs
			}
			if cmd.Flags().Changed("seed") {
				c.cfg.Training.Seed = seed
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.train(ctx)
		},
	}

	cmd.Flags().IntVar(&epochs, "epochs", 0, "maximum training epochs")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for the split, initialization and shuffling")
	return cmd
}

func (c *cli) train(ctx context.Context) error {
	spin := c.ui.NewSpinner("Loading catalog " + c.cfg.Catalog.Path)
	spin.Start()
	cat, stats, err := app.LoadCatalog(c.cfg, c.logger)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	c.ui.Success("Loaded %d phones from %d brands (%d rows skipped)", stats.Loaded, len(cat.Brands()), stats.Skipped)

	bar := c.ui.NewProgressBar(c.cfg.Training.Epochs, "Training")
	trainer := usecase.NewTrainer(app.TrainingConfig(c.cfg), c.logger)
	artifacts, err := trainer.Train(ctx, cat.All(), func(s ann.EpochStats) {
		bar.Describe(fmt.Sprintf("Training (val loss %.4f)", s.ValLoss))
		_ = bar.Set(s.Epoch)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}
	artifacts.SkippedRows = stats.Skipped

	store := artifact.NewStore(c.cfg.Artifacts.Dir)
	manifest, err := store.Save(artifacts, usecase.BrandMeans(cat.All()))
	if err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}

	m := artifacts.Metrics
	if c.ui.jsonMode {
		return c.ui.JSON(manifest)
	}
	if m.StoppedEarly {
		c.ui.Info("Stopped early after %d epochs, best epoch %d", m.Epochs, m.BestEpoch)
	}
	c.ui.Success("Artifacts written to %s", store.Dir)

	c.ui.Header("Validation metrics")
	tw := c.ui.Table()
	fmt.Fprintf(tw, "MAE\t%s\n", usd(m.MAE))
	fmt.Fprintf(tw, "RMSE\t%s\n", usd(m.RMSE))
	fmt.Fprintf(tw, "R²\t%.4f\n", m.R2)
	fmt.Fprintf(tw, "Rows\t%d train / %d validation\n", m.TrainRows, m.ValidationRows)
	return tw.Flush()
}
