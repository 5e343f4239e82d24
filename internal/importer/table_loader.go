package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-sync-service/internal/logging"
)

// Record is one parsed row, keyed by header field name.
type Record map[string]string

// Table is the ordered result of loading one input file.
type Table struct {
	Name        string
	Headers     []string
	Rows        []Record
	SkippedRows int
}

// HasColumn reports whether the header declares the given column.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// LoadTable parses one input file into an ordered record sequence. The first
// row is the header. Blank rows are skipped silently; rows whose column count
// does not match the header are recoverable warnings, logged and skipped.
// Both comma-separated text files and .xlsx workbooks (first sheet) are
// accepted.
func LoadTable(path string, logger logging.Logger) (*Table, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXLSXRows(path)
	} else {
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s: empty file, header row required", name)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &Table{Name: name, Headers: headers}
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) != len(headers) {
			table.SkippedRows++
			logger.Warning("skipping malformed row", logging.Fields{
				"table":    name,
				"row":      i + 2,
				"columns":  len(row),
				"expected": len(headers),
			})
			continue
		}
		record := make(Record, len(headers))
		for j, h := range headers {
			record[h] = strings.TrimSpace(row[j])
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // column count checked per row against the header

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
