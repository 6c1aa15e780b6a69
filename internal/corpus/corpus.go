// Package corpus reads radiology reports from a MIMIC-CXR tree, a folder of
// text files, or a one- or two-column CSV/XLSX table.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/cxrsect/internal/model"
)

var (
	// ErrNoReports is returned when a corpus holds no reports at all
	ErrNoReports = errors.New("no reports found")

	// ErrFormat is returned for inputs that are not a known corpus layout
	ErrFormat = errors.New("unsupported corpus format")
)

// Source is an ordered, re-walkable collection of reports
type Source interface {
	// Len returns the number of reports Walk will visit
	Len() int

	// Walk visits reports in order. Per-report read failures are passed to fn
	// with the report's id and path set; returning an error from fn stops the walk.
	Walk(ctx context.Context, fn func(model.Report, error) error) error
}

// Open detects the corpus layout at path and returns its source.
// Directories holding p?? group folders are read as MIMIC-CXR, other directories
// as flat folders of .txt files. Files are read by extension (.csv, .xlsx).
func Open(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	var src Source
	if info.IsDir() {
		mimic, err := isMIMIC(path)
		if err != nil {
			return nil, err
		}
		if mimic {
			src, err = WalkMIMIC(path)
		} else {
			src, err = ReadDir(path)
		}
		if err != nil {
			return nil, err
		}
	} else {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			src, err = ReadCSV(path)
		case ".xlsx":
			src, err = ReadXLSX(path)
		default:
			return nil, fmt.Errorf("%w: %s", ErrFormat, path)
		}
		if err != nil {
			return nil, err
		}
	}

	return src, nil
}

// fileSource reads one report per file, lazily
type fileSource struct {
	paths []string
}

func (s *fileSource) Len() int {
	return len(s.paths)
}

func (s *fileSource) Walk(ctx context.Context, fn func(model.Report, error) error) error {
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		report := model.Report{
			ID:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Path: path,
		}

		data, err := os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("read report: %w", err)
		} else {
			report.Text = string(data)
		}

		if err := fn(report, err); err != nil {
			return err
		}
	}
	return nil
}

// memorySource holds reports already parsed from a table
type memorySource struct {
	reports []model.Report
}

func (s *memorySource) Len() int {
	return len(s.reports)
}

func (s *memorySource) Walk(ctx context.Context, fn func(model.Report, error) error) error {
	for _, report := range s.reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(report, nil); err != nil {
			return err
		}
	}
	return nil
}
