package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mimir-aip/winequality/pkg/table"
)

// ReadJSON reads an array of flat objects, or an object whose "records" key holds one.
// Columns appear in the order their keys are first seen.
func ReadJSON(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	data = bytes.TrimSpace(data)

	var records []json.RawMessage
	switch {
	case len(data) > 0 && data[0] == '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding JSON records: %w", err)
		}
	case len(data) > 0 && data[0] == '{':
		var wrapper struct {
			Records []json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding JSON records: %w", err)
		}
		if wrapper.Records == nil {
			return nil, fmt.Errorf(`JSON object has no "records" array`)
		}
		records = wrapper.Records
	default:
		return nil, fmt.Errorf("JSON must be an array of records")
	}

	var names []string
	position := make(map[string]int)
	rows := make([][]string, len(records))
	for i, raw := range records {
		fields, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		row := make([]string, len(names))
		for _, f := range fields {
			j, ok := position[f.key]
			if !ok {
				j = len(names)
				position[f.key] = j
				names = append(names, f.key)
				row = append(row, "")
			}
			row[j] = f.value
		}
		rows[i] = row
	}
	return fromCells(names, rows)
}

type field struct {
	key   string
	value string
}

// decodeRecord walks one object keeping its key order
func decodeRecord(raw json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object")
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		cell, err := jsonCell(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, field{key: key, value: cell})
	}
	return fields, nil
}

func jsonCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case json.Number:
		return x.String(), nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("nested values are not supported")
	}
}
