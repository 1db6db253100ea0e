package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/mimir-aip/winequality/pkg/table"
)

// ReadCSV reads a CSV file with a header row. A zero delimiter is detected from the header:
// semicolons, as in the UCI wine files, win over commas when there are more of them.
func ReadCSV(r io.Reader, delimiter rune) (*table.Table, error) {
	br := bufio.NewReader(r)
	if delimiter == 0 {
		header, err := br.Peek(br.Size())
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, fmt.Errorf("reading CSV header: %w", err)
		}
		delimiter = detectDelimiter(string(header))
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}
	return fromCells(records[0], records[1:])
}

func detectDelimiter(sample string) rune {
	line := sample
	if i := strings.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

// WriteCSV writes t with a header row. Numeric cells use the shortest exact representation.
func WriteCSV(w io.Writer, t *table.Table, delimiter rune) error {
	if delimiter == 0 {
		delimiter = ','
	}
	writer := csv.NewWriter(w)
	writer.Comma = delimiter

	names := t.Names()
	columns := make([][]string, len(names))
	for j, name := range names {
		values, err := t.Strings(name)
		if err != nil {
			return err
		}
		columns[j] = values
	}

	if err := writer.Write(names); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	record := make([]string, len(names))
	for i := 0; i < t.NumRows(); i++ {
		for j := range names {
			record[j] = columns[j][i]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
