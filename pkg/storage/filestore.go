// Package storage persists trained artifacts and reports on the local filesystem.
//
// Every write goes to a temporary file in the destination directory and is renamed into place,
// so readers never observe a partially written file.
package storage

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mimir-aip/winequality/pkg/models"
)

// Staged is a fully written temporary file waiting to be renamed over its destination
type Staged struct {
	path string
	tmp  string
}

// Stage writes the bytes produced by encode to a temporary file next to path, creating parent
// directories. Nothing at path changes until Commit.
func Stage(path string, encode func(w io.Writer) error) (*Staged, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	staged := false
	defer func() {
		if !staged {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := encode(tmp); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	staged = true
	return &Staged{path: path, tmp: tmpName}, nil
}

// Path returns the destination of the staged file
func (s *Staged) Path() string {
	return s.path
}

// Commit renames the staged file into place
func (s *Staged) Commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("failed to move %s into place: %w", s.path, err)
	}
	return nil
}

// Discard removes the staged file, leaving the destination untouched
func (s *Staged) Discard() {
	os.Remove(s.tmp)
}

// WriteFile atomically writes the bytes produced by encode to path, creating parent directories
func WriteFile(path string, encode func(w io.Writer) error) error {
	staged, err := Stage(path, encode)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// File pairs a destination with the encoder producing its contents
type File struct {
	Path   string
	Encode func(w io.Writer) error
}

// WriteAll stages every file before committing any of them. If a file fails to stage, the
// already staged ones are discarded and no destination changes.
func WriteAll(files ...File) error {
	staged := make([]*Staged, 0, len(files))
	for _, f := range files {
		s, err := Stage(f.Path, f.Encode)
		if err != nil {
			for _, done := range staged {
				done.Discard()
			}
			return err
		}
		staged = append(staged, s)
	}
	for i, s := range staged {
		if err := s.Commit(); err != nil {
			for _, rest := range staged[i+1:] {
				rest.Discard()
			}
			return err
		}
	}
	return nil
}

// GobEncoder returns an encoder writing v in gob form
func GobEncoder(v any) func(w io.Writer) error {
	return func(w io.Writer) error {
		if err := gob.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("failed to encode gob: %w", err)
		}
		return nil
	}
}

// JSONEncoder returns an encoder writing v as indented JSON with a trailing newline
func JSONEncoder(v any) func(w io.Writer) error {
	return func(w io.Writer) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write json: %w", err)
		}
		return nil
	}
}

// WriteGob atomically writes v gob-encoded to path
func WriteGob(path string, v any) error {
	return WriteFile(path, GobEncoder(v))
}

// ReadGob decodes the gob file at path into v. A missing file is a not-found error.
func ReadGob(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteJSON atomically writes v as indented JSON to path
func WriteJSON(path string, v any) error {
	return WriteFile(path, JSONEncoder(v))
}

// ReadJSON decodes the JSON file at path into v. A missing file is a not-found error.
func ReadJSON(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

// Stat returns the file info for path, mapping a missing file to a not-found error
func Stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, models.NotFoundError("file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, models.NotFoundError("file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
