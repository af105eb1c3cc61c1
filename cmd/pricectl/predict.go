package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/domain"
)

func newPredictCmd(c *cli) *cobra.Command {
	var req domain.PredictRequest

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the launch price of a phone",
		Example: `  pricectl predict --brand Samsung --ram 8 --front-camera 12 \
    --back-camera 50 --battery 5000 --screen 6.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.NewPricingService(c.cfg, nil, c.logger)
			if err != nil {
				if app.IsModelUnavailable(err) {
					c.ui.Warning("No usable model, run `pricectl train` first")
				}
				return err
			}

			result, err := svc.Predict(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if c.ui.jsonMode {
				return c.ui.JSON(result)
			}

			display := c.cfg.Display
			c.ui.Header(fmt.Sprintf("%s %s", result.Brand, result.Specs.Labels()))
			tw := c.ui.Table()
			fmt.Fprintf(tw, "Estimated price\t%s\t%s %s\n",
				usd(result.CalibratedPrice), display.Currency, groupThousands(math.Round(result.CalibratedPrice*display.USDRate)))
			fmt.Fprintf(tw, "Model output\t%s\t\n", usd(result.RawModelPrice))
			fmt.Fprintf(tw, "Anchor (%s)\t%s\t%s - %s\n",
				result.AnchorSource, usd(result.Anchor), usd(result.Band.Lower), usd(result.Band.Upper))
			if err := tw.Flush(); err != nil {
				return err
			}

			if !result.KnownBrand {
				c.ui.Warning("%s is not in the training catalog, the estimate uses the market-wide mean", result.Brand)
			}
			if len(result.Comparables) == 0 {
				return nil
			}

			c.ui.Header("Similar phones")
			tw = c.ui.Table()
			fmt.Fprintln(tw, "MODEL\tPRICE\tSIMILARITY")
			for _, p := range result.Comparables {
				fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", p.Model, usd(p.PriceUSD), p.SimilarityScore)
			}
			return tw.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Brand, "brand", "", "brand name")
	flags.Float64Var(&req.RAM, "ram", 0, "RAM in GB")
	flags.Float64Var(&req.FrontCamera, "front-camera", 0, "front camera in MP")
	flags.Float64Var(&req.BackCamera, "back-camera", 0, "back camera in MP")
	flags.Float64Var(&req.Battery, "battery", 0, "battery capacity in mAh")
	flags.Float64Var(&req.Screen, "screen", 0, "screen size in inches")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

// groupThousands renders 12345678 as 12.345.678, the IDR convention.
func groupThousands(v float64) string {
	s := fmt.Sprintf("%.0f", math.Abs(v))
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
