package models

import "fmt"

// SourceType represents the kind of raw data source
type SourceType string

const (
	SourceTypeCSV     SourceType = "csv"
	SourceTypeJSON    SourceType = "json"
	SourceTypeParquet SourceType = "parquet"
	SourceTypeXML     SourceType = "xml"
	SourceTypeSQL     SourceType = "sql"
	SourceTypeHTTP    SourceType = "http"
	SourceTypeS3      SourceType = "s3"
)

// DataSource describes where raw wine records are read from
type DataSource struct {
	Type      SourceType `json:"type" yaml:"type"`
	Path      string     `json:"path,omitempty" yaml:"path,omitempty"`           // file path, URL or DSN
	Delimiter string     `json:"delimiter,omitempty" yaml:"delimiter,omitempty"` // CSV only, auto-detected when empty
	Query     string     `json:"query,omitempty" yaml:"query,omitempty"`         // SQL query or table name
}

// Validate checks that the source is usable
func (d DataSource) Validate() error {
	switch d.Type {
	case SourceTypeCSV, SourceTypeJSON, SourceTypeParquet, SourceTypeXML, SourceTypeHTTP, SourceTypeS3:
		if d.Path == "" {
			return NewConfigurationError("source", "path", "path is required for %s sources", d.Type)
		}
	case SourceTypeSQL:
		if d.Path == "" {
			return NewConfigurationError("source", "path", "dsn is required for sql sources")
		}
		if d.Query == "" {
			return NewConfigurationError("source", "query", "query or table name is required for sql sources")
		}
	default:
		return NewConfigurationError("source", "type", "unsupported source type %q", d.Type)
	}
	if len(d.Delimiter) > 1 {
		return NewConfigurationError("source", "delimiter", "delimiter must be a single character")
	}
	return nil
}

func (d DataSource) String() string {
	if d.Query != "" {
		return fmt.Sprintf("%s:%s (%s)", d.Type, d.Path, d.Query)
	}
	return fmt.Sprintf("%s:%s", d.Type, d.Path)
}
