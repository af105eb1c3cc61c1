package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/artifact"
)

const catalogTSV = `Company Name	Model Name	RAM	Front Camera	Back Camera	Battery Capacity	Screen Size	Launched Price (USA)
Apple	iPhone A	4GB	8MP	12MP	4,000mAh	6.1 inches	USD 599
Apple	iPhone B	8GB	16MP	50MP	4,500mAh	6.5 inches	USD 899
Apple	iPhone C	16GB	32MP	108MP	5,000mAh	6.8 inches	USD 1,399
Xiaomi	Redmi A	4GB	8MP	12MP	4,000mAh	6.11 inches	USD 179
Xiaomi	Redmi B	8GB	16MP	50MP	4,500mAh	6.51 inches	USD 349
Xiaomi	Redmi C	16GB	32MP	108MP	5,000mAh	6.81 inches	USD 699
Xiaomi	Broken	n/a	8MP	12MP	4,000mAh	6.1 inches	USD 99
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func setup(t *testing.T) (catalogPath, artifactsDir string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath = filepath.Join(dir, "phones.tsv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogTSV), 0o644))
	return catalogPath, filepath.Join(dir, "artifacts")
}

func TestStatsCommand(t *testing.T) {
	catalogPath, _ := setup(t)

	t.Run("table", func(t *testing.T) {
		out, _, err := run(t, "stats", "--catalog", catalogPath)
		require.NoError(t, err)
		assert.Contains(t, out, "BRAND")
		assert.Contains(t, out, "Xiaomi")
		assert.Less(t, strings.Index(out, "Xiaomi"), strings.Index(out, "Apple"), "cheapest brand first")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := run(t, "stats", "--json", "--catalog", catalogPath)
		require.NoError(t, err)

		var summaries []domain.BrandSummary
		require.NoError(t, json.Unmarshal([]byte(out), &summaries))
		require.Len(t, summaries, 2)
		assert.Equal(t, "Xiaomi", summaries[0].Brand)
		assert.Equal(t, 3, summaries[0].Count)
	})

	t.Run("missing catalog", func(t *testing.T) {
		_, _, err := run(t, "stats", "--catalog", filepath.Join(t.TempDir(), "none.tsv"))
		assert.Error(t, err)
	})
}

func TestTrainInspectPredict(t *testing.T) {
	catalogPath, artifactsDir := setup(t)
	common := []string{"--catalog", catalogPath, "--artifacts", artifactsDir}

	t.Run("predict before training fails", func(t *testing.T) {
		_, _, err := run(t, append([]string{"predict", "--brand", "Apple", "--ram", "8", "--battery", "4500", "--screen", "6.5"}, common...)...)
		assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	})

	t.Run("train", func(t *testing.T) {
		out, _, err := run(t, append([]string{"train", "--epochs", "5"}, common...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "Loaded 6 phones from 2 brands (1 rows skipped)")
		assert.Contains(t, out, "Validation metrics")

		for _, name := range []string{artifact.RegressorFile, artifact.BundleFile, artifact.StatsFile, artifact.ManifestFile} {
			assert.FileExists(t, filepath.Join(artifactsDir, name))
		}
	})

	t.Run("inspect", func(t *testing.T) {
		out, _, err := run(t, append([]string{"inspect", "--dump"}, common...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "format_version: 1")
		assert.Contains(t, out, "skipped_rows: 1")
		assert.Contains(t, out, "Checksums verified")
		assert.Contains(t, out, "regressor.json matches the bundle")
		assert.Contains(t, out, "Vocabulary")
	})

	t.Run("predict", func(t *testing.T) {
		out, _, err := run(t, append([]string{"predict", "--json",
			"--brand", "Apple", "--ram", "8", "--front-camera", "16", "--back-camera", "50",
			"--battery", "4500", "--screen", "6.5"}, common...)...)
		require.NoError(t, err)

		var result domain.PredictionResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.GreaterOrEqual(t, result.CalibratedPrice, 899*0.98-1e-9)
		assert.LessOrEqual(t, result.CalibratedPrice, 899*1.05+1e-9)
		assert.Equal(t, "iPhone B", result.Comparables[0].Model)
	})

	t.Run("predict table", func(t *testing.T) {
		out, _, err := run(t, append([]string{"predict",
			"--brand", "Xiaomi", "--ram", "4", "--front-camera", "8", "--back-camera", "12",
			"--battery", "4000", "--screen", "6.11"}, common...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "Estimated price")
		assert.Contains(t, out, "IDR")
		assert.Contains(t, out, "Redmi A")
	})

	t.Run("predict requires a brand", func(t *testing.T) {
		_, _, err := run(t, append([]string{"predict", "--ram", "8"}, common...)...)
		assert.Error(t, err)
	})
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.000"},
		{14204200, "14.204.200"},
		{-15800, "-15.800"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, groupThousands(tt.in))
		})
	}
}
