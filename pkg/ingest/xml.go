package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/mimir-aip/winequality/pkg/table"
)

// ReadXML reads documents shaped like <rows><row><col>value</col>...</row>...</rows>. The
// root and row element names are not checked. Columns appear in the order they are first seen.
func ReadXML(r io.Reader) (*table.Table, error) {
	dec := xml.NewDecoder(r)

	var names []string
	position := make(map[string]int)
	var rows [][]string
	var row []string
	var column string
	var text strings.Builder

	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding XML: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				row = make([]string, len(names))
			case 3:
				column = el.Name.Local
				text.Reset()
			case 4:
				return nil, fmt.Errorf("nested element <%s> inside column %q is not supported", el.Name.Local, column)
			}
		case xml.CharData:
			if depth == 3 {
				text.Write(el)
			}
		case xml.EndElement:
			switch depth {
			case 2:
				rows = append(rows, row)
			case 3:
				j, ok := position[column]
				if !ok {
					j = len(names)
					position[column] = j
					names = append(names, column)
				}
				for len(row) <= j {
					row = append(row, "")
				}
				row[j] = text.String()
			}
			depth--
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("XML document has no rows")
	}
	return fromCells(names, rows)
}
