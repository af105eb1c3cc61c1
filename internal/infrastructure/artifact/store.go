// Package artifact persists trained artifacts as flat files in one directory.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// File names inside the artifact directory
const (
	RegressorFile = "regressor.json"
	BundleFile    = "bundle.json"
	StatsFile     = "stats.json"
	ManifestFile  = "manifest.yaml"
)

// ErrRegressorMismatch is returned when the standalone regressor file differs
// from the regressor inside the bundle
var ErrRegressorMismatch = errors.New("standalone regressor does not match bundle")

// formatVersion is bumped when the bundle layout changes incompatibly
const formatVersion = 1

// bundle is the on-disk layout of BundleFile
type bundle struct {
	FormatVersion int `json:"format_version"`
	*usecase.TrainedArtifacts
}

// Manifest is the human-readable model card written next to the artifacts
type Manifest struct {
	FormatVersion int                    `yaml:"format_version"`
	TrainedAt     time.Time              `yaml:"trained_at"`
	CatalogRows   int                    `yaml:"catalog_rows"`
	SkippedRows   int                    `yaml:"skipped_rows"`
	Brands        []string               `yaml:"brands"`
	Features      []FeatureStats         `yaml:"features"`
	Layers        []string               `yaml:"layers"`
	Metrics       domain.TrainingMetrics `yaml:"metrics"`
	Files         map[string]string      `yaml:"files"` // name -> sha256
}

// FeatureStats is one numeric feature's scaler statistics
type FeatureStats struct {
	Name string  `yaml:"name"`
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
}

// Store reads and writes artifacts under Dir
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Save writes all artifact files. Each file is written to a temporary name and
// renamed into place, so readers never observe a partial file.
func (s *Store) Save(a *usecase.TrainedArtifacts, brandMeans map[string]float64) (*Manifest, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	manifest := &Manifest{
		FormatVersion: formatVersion,
		TrainedAt:     a.TrainedAt,
		CatalogRows:   a.CatalogRows,
		SkippedRows:   a.SkippedRows,
		Brands:        a.Encoder.Vocabulary,
		Metrics:       a.Metrics,
		Files:         make(map[string]string),
	}
	for i, name := range domain.NumericFeatureNames {
		manifest.Features = append(manifest.Features, FeatureStats{Name: name, Mean: a.Scaler.Mean[i], Std: a.Scaler.Std[i]})
	}
	for _, l := range a.Regressor.Network.Layers {
		desc := fmt.Sprintf("dense %dx%d %s", l.Inputs, l.Outputs, l.Activation)
		if l.Dropout > 0 {
			desc += fmt.Sprintf(" dropout %.2f", l.Dropout)
		}
		manifest.Layers = append(manifest.Layers, desc)
	}

	files := []struct {
		name  string
		value any
	}{
		{RegressorFile, a.Regressor},
		{BundleFile, bundle{FormatVersion: formatVersion, TrainedArtifacts: a}},
		{StatsFile, brandMeans},
	}
	for _, f := range files {
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := s.writeAtomic(f.name, data); err != nil {
			return nil, err
		}
		sum := sha256.Sum256(data)
		manifest.Files[f.name] = hex.EncodeToString(sum[:])
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ManifestFile, err)
	}
	if err := s.writeAtomic(ManifestFile, data); err != nil {
		return nil, err
	}
	return manifest, nil
}

// Load reads the bundle and the brand-mean stats. Missing or inconsistent
// artifacts are reported as ModelUnavailable. A missing stats file yields nil means.
func (s *Store) Load() (*usecase.TrainedArtifacts, map[string]float64, error) {
	var b bundle
	if err := s.readJSON(BundleFile, &b); err != nil {
		return nil, nil, domain.NewPredictionError(domain.KindModelUnavailable, "load artifacts", err)
	}
	if b.FormatVersion != formatVersion {
		return nil, nil, domain.NewPredictionError(domain.KindModelUnavailable, "load artifacts",
			fmt.Errorf("bundle format %d, want %d", b.FormatVersion, formatVersion))
	}
	if b.TrainedArtifacts == nil || b.Encoder == nil {
		return nil, nil, domain.NewPredictionError(domain.KindModelUnavailable, "load artifacts", errors.New("bundle is empty"))
	}

	a := b.TrainedArtifacts
	a.Encoder = usecase.NewBrandEncoder(a.Encoder.Vocabulary)
	if err := a.Validate(); err != nil {
		return nil, nil, err
	}

	var means map[string]float64
	if err := s.readJSON(StatsFile, &means); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, domain.NewPredictionError(domain.KindModelUnavailable, "load stats", err)
	}
	return a, means, nil
}

// LoadRegressor reads the standalone regressor file.
func (s *Store) LoadRegressor() (*usecase.PriceRegressor, error) {
	var r usecase.PriceRegressor
	if err := s.readJSON(RegressorFile, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", RegressorFile, err)
	}
	return &r, nil
}

// CheckRegressor loads the standalone regressor file and compares it with
// the regressor of a loaded bundle.
func (s *Store) CheckRegressor(bundled *usecase.PriceRegressor) error {
	standalone, err := s.LoadRegressor()
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(standalone, bundled) {
		return ErrRegressorMismatch
	}
	return nil
}

// LoadManifest reads the model card.
func (s *Store) LoadManifest() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	return &m, nil
}

// Verify recomputes file checksums against the manifest.
func (s *Store) Verify() error {
	m, err := s.LoadManifest()
	if err != nil {
		return err
	}
	for name, want := range m.Files {
		f, err := os.Open(filepath.Join(s.Dir, name))
		if err != nil {
			return err
		}
		h := sha256.New()
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if got := hex.EncodeToString(h.Sum(nil)); got != want {
			return fmt.Errorf("%s checksum mismatch", name)
		}
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
