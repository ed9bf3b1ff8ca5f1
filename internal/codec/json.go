package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cadtoh5m/internal/domain"
)

// JSONCodec handles JSON import/export. It reads both job objects and the
// bare entry lists written as geometry details, so the details of one run
// can seed the next.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

type jsonJob struct {
	JobOptions
	FilesWithTags []domain.GeometryEntry `json:"files_with_tags"`
}

// Parse reads a job object or an entry list
func (c *JSONCodec) Parse(r io.Reader) (*Job, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	decoder := json.NewDecoder(br)
	if first == '[' {
		var entries []domain.GeometryEntry
		if err := decoder.Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return &Job{Entries: entries}, nil
	}

	var jj jsonJob
	if err := decoder.Decode(&jj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &Job{Entries: jj.FilesWithTags, Options: jj.JobOptions}, nil
}

// Export writes entries as an indented JSON list
func (c *JSONCodec) Export(entries []domain.GeometryEntry, w io.Writer) error {
	if entries == nil {
		entries = []domain.GeometryEntry{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")

	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// WriteGeometryDetails writes the entries of a run to path as JSON
func WriteGeometryDetails(path string, entries []domain.GeometryEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := NewJSONCodec().Export(entries, &buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadGeometryDetails reads entries written by WriteGeometryDetails
func ReadGeometryDetails(path string) ([]domain.GeometryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	job, err := NewJSONCodec().Parse(f)
	if err != nil {
		return nil, err
	}
	return job.Entries, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
