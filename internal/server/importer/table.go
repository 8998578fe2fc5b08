// Package importer turns stock/sales spreadsheets into product rows: it
// reads CSV or xlsx tables, maps headers, synthesizes category paths,
// coerces numbers and applies the dead-stock filter.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows, all as text.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns row[i] trimmed, or "" when the row is short or i < 0.
func (t *Table) Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadTable reads path as CSV when the extension is .csv and as an xlsx
// workbook (first sheet) otherwise. Any parse failure is a
// *common.FormatError.
func ReadTable(path string) (*Table, error) {
	var (
		t   *Table
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		t, err = readCSV(path)
	} else {
		t, err = readXLSX(path)
	}
	if err != nil {
		return nil, &common.FormatError{Path: filepath.Base(path), Err: err}
	}
	return t, nil
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}

	t := &Table{Header: cleanHeader(header)}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}

	return &Table{Header: cleanHeader(rows[0]), Rows: rows[1:]}, nil
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, v := range h {
		out[i] = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	}
	return out
}
