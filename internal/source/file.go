package source

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileSource reads records from a CSV file with a header row, or from a file
// of JSON objects.
type FileSource struct {
	*stream
	name string
	path string
	ext  string
}

func NewFileSource(name, path string) (*FileSource, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".json" && ext != ".jsonl" {
		return nil, errors.Errorf("unsupported file type %q (use .csv, .json, or .jsonl)", ext)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "file source")
	}
	return &FileSource{
		stream: newStream(),
		name:   name,
		path:   path,
		ext:    ext,
	}, nil
}

func (s *FileSource) Type() SourceType { return Static }
func (s *FileSource) Name() string     { return s.name }

func (s *FileSource) Records() (<-chan Record, error) {
	return s.start(s.read), nil
}

func (s *FileSource) read(emit func(Record) bool) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrap(err, "file source")
	}
	defer f.Close()

	switch s.ext {
	case ".csv":
		return readCSV(f, emit)
	default:
		return readJSON(f, emit)
	}
}

// readCSV emits each row keyed by the header. Cells stay strings; they are
// converted once the column types are known.
func readCSV(r io.Reader, emit func(Record) bool) error {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "csv")
		}

		rec := make(Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		if !emit(rec) {
			return nil
		}
	}
}

// readJSON emits each object of a stream of JSON objects.
func readJSON(r io.Reader, emit func(Record) bool) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	for n := 1; ; n++ {
		var rec Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "json object %d", n)
		}
		if !emit(normalize(rec)) {
			return nil
		}
	}
}

// normalize replaces json.Number values with int64 or float64.
func normalize(rec Record) Record {
	for k, v := range rec {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			rec[k] = i
		} else if f, err := n.Float64(); err == nil {
			rec[k] = f
		} else {
			rec[k] = n.String()
		}
	}
	return rec
}
