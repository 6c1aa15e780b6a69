package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/xuri/excelize/v2"
)

// ErrColumns is returned for tables that are not one or two columns wide
var ErrColumns = errors.New("a one or two column table with no header is expected")

// ReadCSV loads reports from a header-less CSV file.
// One column holds the report text and ids are row indices; with two columns the
// first is the id and the second the text.
func ReadCSV(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		rows = append(rows, row)
	}

	return fromRows(path, rows)
}

// ReadXLSX loads reports from the first sheet of a workbook, using the same
// column convention as ReadCSV.
func ReadXLSX(path string) (Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrNoReports, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return fromRows(path, rows)
}

// fromRows applies the one/two column convention.
// Spreadsheet rows drop trailing empty cells, so width is the widest row.
func fromRows(path string, rows [][]string) (Source, error) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	if width == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoReports, path)
	}
	if width > 2 {
		return nil, fmt.Errorf("%w: %s has %d columns", ErrColumns, path, width)
	}

	reports := make([]model.Report, len(rows))
	for i, row := range rows {
		report := model.Report{Path: path}
		if width == 1 {
			report.ID = strconv.Itoa(i)
			report.Text = cell(row, 0)
		} else {
			report.ID = cell(row, 0)
			report.Text = cell(row, 1)
		}
		reports[i] = report
	}

	return &memorySource{reports: reports}, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
