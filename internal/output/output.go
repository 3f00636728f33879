// Package output renders result rows.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/types"
)

// Writer writes query results. WriteHeader is called once, before any row.
type Writer interface {
	WriteHeader(cols types.Schema) error
	WriteRow(row types.Row) error
	Flush() error
}

// New returns the writer for format "table" or "json".
func New(format string, w io.Writer) (Writer, error) {
	switch format {
	case "table", "":
		return NewTableWriter(w), nil
	case "json":
		return NewJSONWriter(w), nil
	default:
		return nil, errors.Errorf("unknown output format %q (use table or json)", format)
	}
}

// WriteRows writes a full result set to w and flushes it.
func WriteRows(w Writer, cols types.Schema, rows []types.Row) error {
	if err := w.WriteHeader(cols); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// JSONWriter writes JSON lines to an io.Writer, one object per row with keys
// in column order.
type JSONWriter struct {
	w    io.Writer
	cols []string
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (jw *JSONWriter) WriteHeader(cols types.Schema) error {
	jw.cols = cols.Names()
	return nil
}

func (jw *JSONWriter) WriteRow(row types.Row) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range jw.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		val, err := json.Marshal(types.Native(row[i]))
		if err != nil {
			return errors.Wrapf(err, "column %s", col)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}\n")
	_, err := jw.w.Write(buf.Bytes())
	return err
}

func (jw *JSONWriter) Flush() error {
	return nil
}

// TableWriter buffers rows and writes them as an aligned, pipe-separated
// table with a row count footer on Flush.
type TableWriter struct {
	w      io.Writer
	cols   []string
	rows   [][]string
	widths []int
}

func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

func (tw *TableWriter) WriteHeader(cols types.Schema) error {
	tw.cols = cols.Names()
	tw.rows = nil
	tw.widths = make([]int, len(tw.cols))
	for i, col := range tw.cols {
		tw.widths[i] = utf8.RuneCountInString(col)
	}
	return nil
}

func (tw *TableWriter) WriteRow(row types.Row) error {
	cells := make([]string, len(tw.cols))
	for i := range cells {
		cells[i] = row[i].String()
		if n := utf8.RuneCountInString(cells[i]); n > tw.widths[i] {
			tw.widths[i] = n
		}
	}
	tw.rows = append(tw.rows, cells)
	return nil
}

func (tw *TableWriter) Flush() error {
	var b strings.Builder
	tw.line(&b, tw.cols)
	seps := make([]string, len(tw.cols))
	for i, w := range tw.widths {
		seps[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(seps, "-+-"))
	b.WriteString("\n")
	for _, row := range tw.rows {
		tw.line(&b, row)
	}
	n := int64(len(tw.rows))
	fmt.Fprintf(&b, "(%s %s)\n", humanize.Comma(n), english.PluralWord(int(n), "row", ""))

	tw.rows = nil
	_, err := io.WriteString(tw.w, b.String())
	return err
}

func (tw *TableWriter) line(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(cell)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", tw.widths[i]-utf8.RuneCountInString(cell)))
		}
	}
	b.WriteString("\n")
}
