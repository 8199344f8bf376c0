package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrUnsupportedFormat is returned when a source file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileNotFound is returned when the source path does not exist.
	ErrFileNotFound = errors.New("file not found")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// table is a parsed tabular source with normalized column names.
type table struct {
	headers []string
	rows    [][]string
}

// resolve returns the index of the first candidate column name present in
// the table, or -1 when none match.
func (t table) resolve(candidates ...string) int {
	for _, cand := range candidates {
		for idx, header := range t.headers {
			if header == cand {
				return idx
			}
		}
	}
	return -1
}

// column extracts one column's raw cell values across all rows.
func (t table) column(idx int) []string {
	values := make([]string, len(t.rows))
	for i, row := range t.rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values
}

// cell returns a trimmed cell value, or "" when the row is short.
func (t table) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// readTable loads a delimited file from disk and normalizes it. CSV sources
// are tried as UTF-8, UTF-8 with byte-order mark, then Windows-1252.
func readTable(path string) (table, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return table{}, fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx":
		return parseExcel(payload)
	case ".csv", "":
		return parseCSV(payload)
	default:
		return table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (table, error) {
	payload = bytes.TrimPrefix(payload, byteOrderMark)

	if !utf8.Valid(payload) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(payload)
		if err != nil {
			return table{}, fmt.Errorf("failed to decode csv: %w", err)
		}
		payload = decoded
	}

	csvReader := csv.NewReader(bytes.NewReader(payload))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records), nil
}

func parseExcel(payload []byte) (table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return table{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return table{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return normalizeTable(rows), nil
}

func normalizeTable(records [][]string) table {
	var headerRow []string
	var dataRows [][]string

	for _, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}

	if headerRow == nil {
		return table{}
	}

	headers := make([]string, len(headerRow))
	for i, value := range headerRow {
		headers[i] = normalizeHeader(value)
	}

	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return table{headers: headers, rows: dataRows}
}

// normalizeHeader trims, lowercases, and collapses spaces, hyphens, and
// slashes to underscores so synonym lookup sees one spelling per column.
func normalizeHeader(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
