// Package ingest reads raw wine records from files, databases, HTTP endpoints and S3 into tables.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// Loader reads data sources. The zero value is not usable; use NewLoader.
type Loader struct {
	client *http.Client
	s3     ObjectGetter
	logger *slog.Logger
}

// NewLoader creates a loader. A nil client gets a default one with a 30 second timeout.
func NewLoader(client *http.Client, logger *slog.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{client: client, logger: logger}
}

// Load reads the source into a table
func (l *Loader) Load(ctx context.Context, source models.DataSource) (*table.Table, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	var (
		t   *table.Table
		err error
	)
	switch source.Type {
	case models.SourceTypeCSV:
		t, err = readFile(source.Path, func(r io.Reader) (*table.Table, error) {
			return ReadCSV(r, delimiter(source.Delimiter))
		})
	case models.SourceTypeJSON:
		t, err = readFile(source.Path, ReadJSON)
	case models.SourceTypeXML:
		t, err = readFile(source.Path, ReadXML)
	case models.SourceTypeParquet:
		t, err = readFile(source.Path, func(r io.Reader) (*table.Table, error) {
			return ReadParquet(ctx, r)
		})
	case models.SourceTypeSQL:
		t, err = ReadSQL(ctx, source.Path, source.Query)
	case models.SourceTypeHTTP:
		t, err = l.fetch(ctx, source)
	case models.SourceTypeS3:
		t, err = l.fetchS3(ctx, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}

	l.logger.Debug("source loaded", "source", source.String(), "rows", t.NumRows(), "columns", t.NumCols())
	return t, nil
}

func delimiter(d string) rune {
	if d == "" {
		return 0
	}
	return rune(d[0])
}

func readFile(path string, read func(io.Reader) (*table.Table, error)) (*table.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, models.NotFoundError("file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return read(f)
}

// columnBuilder collects the cells of a column as text and infers its kind at the end
type columnBuilder struct {
	name  string
	cells []string
}

// fromCells builds a table from text cells. A column whose non-empty cells all parse as
// numbers becomes numeric, with empty cells as NaN. Every other column is kept as text.
func fromCells(names []string, rows [][]string) (*table.Table, error) {
	builders := make([]columnBuilder, len(names))
	for j, name := range names {
		builders[j] = columnBuilder{name: strings.TrimSpace(name), cells: make([]string, len(rows))}
	}
	for i, row := range rows {
		for j := range builders {
			if j < len(row) {
				builders[j].cells[i] = strings.TrimSpace(row[j])
			}
		}
	}

	cols := make([]table.Column, len(builders))
	for j, b := range builders {
		cols[j] = b.column()
	}
	return table.New(cols...)
}

func (b columnBuilder) column() table.Column {
	values := make([]float64, len(b.cells))
	for i, cell := range b.cells {
		if cell == "" || strings.EqualFold(cell, "nan") || strings.EqualFold(cell, "null") {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return table.NewString(b.name, b.cells)
		}
		values[i] = v
	}
	return table.NewFloat(b.name, values)
}
