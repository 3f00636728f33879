// Package source reads records from external data into tables.
package source

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Record is a single row from a source: column names to values.
type Record map[string]interface{}

// SourceType classifies sources as streaming or static.
type SourceType int

const (
	Streaming SourceType = iota
	Static
)

// Source reads records from a data source.
type Source interface {
	// Type returns whether this is a streaming or static source.
	Type() SourceType
	// Name returns the table name for this source.
	Name() string
	// Records returns a channel of records which closes when the source is
	// exhausted, fails or is closed.
	Records() (<-chan Record, error)
	// Err returns the error that ended the stream, if any. It is only
	// meaningful once the Records channel has closed.
	Err() error
	// Close stops reading and cleans up resources.
	Close() error
}

// Config describes a source from a --source flag.
type Config struct {
	Name   string
	URI    string
	Scheme string
	// Table is the table to read for sqlite sources.
	Table string
}

// ParseURI parses a source URI: "stdin", "file://path.csv",
// "sqlite://path.db#table" or a bare file path.
func ParseURI(name, uri string) (*Config, error) {
	if name == "" {
		return nil, errors.Errorf("source %q has no table name", uri)
	}
	if uri == "stdin" || uri == "" {
		return &Config{Name: name, URI: uri, Scheme: "stdin"}, nil
	}
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return &Config{Name: name, URI: path, Scheme: "file"}, nil
	}
	if rest, ok := strings.CutPrefix(uri, "sqlite://"); ok {
		path, table, _ := strings.Cut(rest, "#")
		if path == "" {
			return nil, errors.Errorf("sqlite source %q has no database path", uri)
		}
		if table == "" {
			table = name
		}
		return &Config{Name: name, URI: path, Scheme: "sqlite", Table: table}, nil
	}
	if scheme, _, ok := strings.Cut(uri, "://"); ok {
		return nil, errors.Errorf("unsupported source scheme: %s", scheme)
	}
	// Default: treat as file path
	return &Config{Name: name, URI: uri, Scheme: "file"}, nil
}

// ParseFlag parses a "table=uri" flag value.
func ParseFlag(s string) (*Config, error) {
	name, uri, ok := strings.Cut(s, "=")
	if !ok {
		return nil, errors.Errorf("invalid source %q (want table=uri)", s)
	}
	return ParseURI(strings.TrimSpace(name), strings.TrimSpace(uri))
}

// NewSource creates a source from a config.
func NewSource(cfg *Config) (Source, error) {
	switch cfg.Scheme {
	case "stdin":
		return NewStdinSource(cfg.Name), nil
	case "file":
		return NewFileSource(cfg.Name, cfg.URI)
	case "sqlite":
		return NewSQLiteSource(cfg.Name, cfg.URI, cfg.Table)
	default:
		return nil, errors.Errorf("unsupported source scheme: %s", cfg.Scheme)
	}
}

// stream is the channel plumbing shared by every source. The read function
// runs once, on its own goroutine, the first time Records is called.
type stream struct {
	ch        chan Record
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newStream() *stream {
	return &stream{
		ch:   make(chan Record, 64),
		done: make(chan struct{}),
	}
}

func (s *stream) start(read func(emit func(Record) bool) error) <-chan Record {
	s.startOnce.Do(func() {
		go func() {
			defer close(s.ch)
			if err := read(s.emit); err != nil {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
		}()
	})
	return s.ch
}

// emit sends rec and reports false once the source has been closed.
func (s *stream) emit(rec Record) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- rec:
		return true
	case <-s.done:
		return false
	}
}

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
