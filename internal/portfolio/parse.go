// Package portfolio parses, validates and imports portfolio allocation files.
package portfolio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/trogers1052/finfun/internal/models"
)

// Column names every portfolio file must carry
const (
	ColumnSymbol     = "stock_symbol"
	ColumnAllocation = "allocation_percentage"
)

// row is one parsed line before validation
type row struct {
	Symbol     string `csv:"stock_symbol" validate:"required,max=10"`
	Allocation string `csv:"allocation_percentage" validate:"required,numeric"`
}

// ErrUnsupportedFormat is returned for files that are neither .csv nor .txt
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedExtension reports whether a file name can be imported
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return true
	}
	return false
}

// Parse reads a portfolio file. The format is picked from the file
// extension: .csv is comma separated, .txt is whitespace separated.
func Parse(filename string, r io.Reader) ([]*models.Holding, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.TrimLeadingSpace = true
		cr.FieldsPerRecord = -1
		records, err = cr.ReadAll()
	case ".txt":
		records, err = readFields(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("unreadable file: %v", err)}
	}
	return parseRecords(records)
}

// readFields splits each non-blank line on runs of whitespace
func readFields(r io.Reader) ([][]string, error) {
	var records [][]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		records = append(records, fields)
	}
	return records, scanner.Err()
}

func parseRecords(records [][]string) ([]*models.Holding, error) {
	if len(records) == 0 {
		return nil, &ValidationError{Msg: "file is empty"}
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if !contains(header, ColumnSymbol) || !contains(header, ColumnAllocation) {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("file must contain columns %s and %s", ColumnSymbol, ColumnAllocation),
		}
	}

	var rows []*row
	if err := gocsv.UnmarshalCSV(&recordReader{records: records}, &rows); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("malformed file: %v", err)}
	}

	holdings := make([]*models.Holding, 0, len(rows))
	for i, r := range rows {
		h, err := r.holding(i + 1)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// recordReader feeds already split records to gocsv
type recordReader struct {
	records [][]string
	pos     int
}

func (r *recordReader) Read() ([]string, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

func (r *recordReader) ReadAll() ([][]string, error) {
	rest := r.records[r.pos:]
	r.pos = len(r.records)
	return rest, nil
}
