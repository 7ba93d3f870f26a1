package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is wrapped by Load when a required header is absent.
// It is the only fatal condition in the catalog: everything else about
// imperfect reference data (duplicates, blanks) degrades to logging.
var ErrMissingColumn = errors.New("required column not found")

// requiredColumns are the spreadsheet headers the checker depends on.
var requiredColumns = []string{
	"Key",
	"Original EN",
	"Original CN",
	"Original KH",
	"KH Confirm from BIC",
	"CN Confirm from BIC",
}

// Load reads the reference spreadsheet at path. The format is detected
// from the file extension: .xlsx, .csv, or .tsv.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var rows [][]string
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readDelimited(path, ',')
	case ".tsv":
		rows, err = readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("catalog: unsupported reference format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	c, err := build(rows, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("catalog: loaded reference data",
		"path", path, "entries", c.Len())
	return c, nil
}

// readXLSX returns all rows of the first sheet.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1 // rows may be ragged; build() pads

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// build validates the header row and assembles the catalog.
func build(rows [][]string, logger *slog.Logger) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog: reference data is empty")
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[Normalize(h)] = i
	}
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog: %w: %q", ErrMissingColumn, required)
		}
	}

	cell := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return Normalize(row[i])
	}

	c := &Catalog{}
	for n, row := range rows[1:] {
		e := &Entry{
			Key:         cell(row, "Key"),
			OriginalEN:  cell(row, "Original EN"),
			OriginalCN:  cell(row, "Original CN"),
			OriginalKH:  cell(row, "Original KH"),
			ConfirmedKH: cell(row, "KH Confirm from BIC"),
			ConfirmedCN: cell(row, "CN Confirm from BIC"),
		}
		if e.Key == "" && e.OriginalEN == "" {
			// Blank spacer row; common in hand-maintained sheets.
			logger.Debug("catalog: skipping blank row", "row", n+2)
			continue
		}
		e.enFold = Fold(e.OriginalEN)
		e.khFold = Fold(e.ConfirmedKH)
		e.cnFold = Fold(e.ConfirmedCN)
		c.entries = append(c.entries, e)
	}

	c.index(logger)
	return c, nil
}
