package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// StdinSource reads JSON lines from stdin.
type StdinSource struct {
	*stream
	name string
	r    io.Reader
}

func NewStdinSource(name string) *StdinSource {
	return NewReaderSource(name, os.Stdin)
}

// NewReaderSource reads JSON lines from r. Blank lines are skipped; a
// malformed line ends the stream with an error.
func NewReaderSource(name string, r io.Reader) *StdinSource {
	if name == "" {
		name = "stdin"
	}
	return &StdinSource{
		stream: newStream(),
		name:   name,
		r:      r,
	}
}

func (s *StdinSource) Type() SourceType { return Streaming }
func (s *StdinSource) Name() string     { return s.name }

func (s *StdinSource) Records() (<-chan Record, error) {
	return s.start(s.read), nil
}

func (s *StdinSource) read(emit func(Record) bool) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return errors.Wrapf(err, "line %d", n)
		}
		if !emit(normalize(rec)) {
			return nil
		}
	}
	return errors.Wrap(scanner.Err(), "read")
}
