// Package ingest turns uploaded order exports, product catalogs and historical order logs into
// the inputs of the mining engine.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
)

// descriptionPrefix marks the explanatory row some marketplace exports place under the header.
const descriptionPrefix = "Platform unique"

var ErrEmptyTable = errors.New("table has no header row")

// Table is a header row plus string cells. Rows may be shorter than Columns.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the trimmed cell at column idx, or "" when the row is short or idx < 0.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isBlank treats spreadsheet null markers as empty.
func isBlank(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}

// withRows copies the table header around a new row set.
func (t *Table) withRows(rows [][]string) *Table {
	return &Table{Name: t.Name, Columns: t.Columns, Rows: rows}
}

// SupportedExtension reports whether ReadTable can decode files named like name.
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadTableFile opens and decodes a .csv or .xlsx file.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTable(f, filepath.Base(path))
}

// ReadTable decodes r according to the extension of name. The first row is the header;
// a marketplace description block under it is dropped.
func ReadTable(r io.Reader, name string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, apierr.New(http.StatusBadRequest, "unsupported_file_type",
			fmt.Errorf("unsupported file type %q for %s: use .csv or .xlsx", ext, name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read %s: %w", name, ErrEmptyTable)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &Table{Name: name, Columns: header, Rows: dropDescription(records[1:])}, nil
}

// dropDescription removes the export description block: everything up to and including a
// row among the first two whose first cell starts with descriptionPrefix.
func dropDescription(rows [][]string) [][]string {
	for i := 0; i < 2 && i < len(rows); i++ {
		if strings.HasPrefix(Cell(rows[i], 0), descriptionPrefix) {
			return rows[i+1:]
		}
	}
	return rows
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}
