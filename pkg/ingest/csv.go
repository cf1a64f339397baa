package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// readCSV reads a headered CSV stream into rows.
func readCSV(ctx context.Context, r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []Row
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
}

// FileSource reads corridors from a local CSV file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the CSV at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path.
func (s *FileSource) Name() string { return s.path }

// Rows reads the whole file.
func (s *FileSource) Rows(ctx context.Context) ([]Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open corridor file: %w", err)
	}
	defer f.Close()
	return readCSV(ctx, f)
}

// Close is a no-op.
func (s *FileSource) Close() error { return nil }
