package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/usecase"
)

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show outlier-trimmed price statistics per brand",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := app.LoadCatalog(c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			summaries := usecase.MarketSummaries(cat.All())
			if c.ui.jsonMode {
				return c.ui.JSON(summaries)
			}

			c.ui.Header("Launch prices by brand (USD, IQR outliers removed)")
			tw := c.ui.Table()
			fmt.Fprintln(tw, "BRAND\tMEAN\tMIN\tMAX\tPHONES\t")
			for _, s := range summaries {
				note := ""
				if !s.Trimmed {
					note = "untrimmed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", s.Brand, usd(s.Mean), usd(s.Min), usd(s.Max), s.Count, note)
			}
			return tw.Flush()
		},
	}
}
