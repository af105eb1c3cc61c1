package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pricelens/backend/internal/infrastructure/artifact"
)

func newInspectCmd(c *cli) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the artifact manifest and verify checksums",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := artifact.NewStore(c.cfg.Artifacts.Dir)

			manifest, err := store.LoadManifest()
			if err != nil {
				return err
			}
			verifyErr := store.Verify()

			if c.ui.jsonMode {
				if err := c.ui.JSON(manifest); err != nil {
					return err
				}
				return verifyErr
			}

			out, err := yaml.Marshal(manifest)
			if err != nil {
				return fmt.Errorf("encode manifest: %w", err)
			}
			fmt.Fprint(c.ui.out, string(out))

			if verifyErr != nil {
				c.ui.Warning("Artifact checksums do not match: %v", verifyErr)
				return verifyErr
			}
			c.ui.Success("Checksums verified")

			if dump {
				artifacts, _, err := store.Load()
				if err != nil {
					return err
				}
				if err := store.CheckRegressor(artifacts.Regressor); err != nil {
					c.ui.Warning("%s: %v", artifact.RegressorFile, err)
					return err
				}
				c.ui.Success("%s matches the bundle", artifact.RegressorFile)
				c.ui.Header("Loaded artifacts")
				cfg := spew.ConfigState{Indent: "  ", MaxDepth: 4, DisablePointerAddresses: true, SortKeys: true}
				cfg.Fdump(c.ui.out, artifacts.Encoder, artifacts.Scaler, artifacts.Metrics)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "dump the loaded encoder, scaler and metrics")
	return cmd
}
