package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// requiredColumns are located by header name, in any order
var requiredColumns = []string{
	usecase.FieldBrand,
	usecase.FieldModel,
	usecase.FieldRAM,
	usecase.FieldFrontCamera,
	usecase.FieldBackCamera,
	usecase.FieldBattery,
	usecase.FieldScreen,
	usecase.FieldPrice,
}

// LoadStats reports how many data rows were read and skipped
type LoadStats struct {
	Rows    int
	Loaded  int
	Skipped int
}

// LoadFile reads the catalog at path.
func LoadFile(path string, logger zerolog.Logger) (*Catalog, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, stats, err := Load(f, logger.With().Str("catalog", path).Logger())
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}
	return c, stats, nil
}

// Load parses a tab-separated catalog. Rows with a malformed numeric field are
// skipped with a warning; loading fails only on I/O or header errors, or when
// no row survives.
func Load(r io.Reader, logger zerolog.Logger) (*Catalog, LoadStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, LoadStats{}, domain.ErrEmptyCatalog
		}
		return nil, LoadStats{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, LoadStats{}, err
	}

	var (
		stats   LoadStats
		records []domain.PhoneRecord
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++
		if isBlank(row) {
			stats.Rows--
			continue
		}

		rec, err := usecase.NormalizeRecord(rawPhone(row, cols), stats.Rows)
		if err != nil {
			stats.Skipped++
			logger.Warn().Err(err).Int("row", stats.Rows).Msg("Skipping malformed catalog row")
			continue
		}
		records = append(records, rec)
	}

	stats.Loaded = len(records)
	if stats.Loaded == 0 {
		return nil, stats, domain.ErrEmptyCatalog
	}

	logger.Info().
		Int("rows", stats.Rows).
		Int("loaded", stats.Loaded).
		Int("skipped", stats.Skipped).
		Msg("Catalog loaded")

	return New(records), stats, nil
}

func columnIndex(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		byName[strings.ToLower(name)] = i
	}

	cols := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		i, ok := byName[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog header is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func rawPhone(row []string, cols map[string]int) usecase.RawPhone {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return usecase.RawPhone{
		Brand: field(usecase.FieldBrand),
		Model: field(usecase.FieldModel),
		Specs: domain.SpecLabels{
			RAM:         field(usecase.FieldRAM),
			FrontCamera: field(usecase.FieldFrontCamera),
			BackCamera:  field(usecase.FieldBackCamera),
			Battery:     field(usecase.FieldBattery),
			Screen:      field(usecase.FieldScreen),
		},
		RawPrice: field(usecase.FieldPrice),
	}
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
