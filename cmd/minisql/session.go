package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/ast"
	"github.com/kevin-cantwell/minisql/internal/database"
	"github.com/kevin-cantwell/minisql/internal/engine"
	"github.com/kevin-cantwell/minisql/internal/output"
	"github.com/kevin-cantwell/minisql/internal/types"
)

const (
	prompt         = "minisql> "
	continuePrompt = "     ... "
)

// session runs statements and meta commands and writes their results.
type session struct {
	ctx    context.Context
	eng    *engine.Engine
	store  *database.Store
	format string
	out    io.Writer

	// pending holds the lines of a statement not yet terminated by ";".
	pending strings.Builder
}

func (s *session) repl(in io.Reader) error {
	interactive := in == os.Stdin && readline.DefaultIsTerminal()
	history := ""
	if interactive {
		history = filepath.Join(os.TempDir(), "minisql.history")
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           io.NopCloser(in),
		Stdout:          s.out,
		FuncIsTerminal:  func() bool { return interactive },
	})
	if err != nil {
		return errors.Wrap(err, "readline")
	}
	defer l.Close()

	fmt.Fprintln(s.out, "Welcome to minisql. Statements end with ';'. \\q quits.")
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 && s.pending.Len() == 0 {
				return nil
			}
			s.pending.Reset()
			l.SetPrompt(prompt)
			continue
		} else if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read line")
		}

		quit, err := s.handle(line)
		if err != nil {
			fmt.Fprintln(s.out, "ERROR:", err)
		}
		if quit {
			return nil
		}
		if s.pending.Len() > 0 {
			l.SetPrompt(continuePrompt)
		} else {
			l.SetPrompt(prompt)
		}
	}
}

// handle processes one input line. Statements may span several lines and run
// once the input ends with a ";" outside any string literal.
func (s *session) handle(line string) (quit bool, err error) {
	trimmed := strings.TrimSpace(line)
	if s.pending.Len() == 0 {
		switch {
		case trimmed == "":
			return false, nil
		case trimmed == "quit" || trimmed == "exit" || trimmed == `\q`:
			return true, nil
		case strings.HasPrefix(trimmed, `\`):
			return false, s.meta(trimmed)
		}
	}

	s.pending.WriteString(line)
	s.pending.WriteString("\n")
	query := s.pending.String()
	if !ast.Complete(query) {
		return false, nil
	}
	s.pending.Reset()
	return false, s.exec(query)
}

// exec runs every statement in script, printing each result, and stops at
// the first error.
func (s *session) exec(script string) error {
	results, err := s.eng.ExecScript(script)
	for _, res := range results {
		if perr := s.print(res); perr != nil {
			return perr
		}
	}
	return err
}

func (s *session) print(res *engine.Result) error {
	if res.Kind != engine.Selected {
		_, err := fmt.Fprintln(s.out, res)
		return err
	}
	w, err := output.New(s.format, s.out)
	if err != nil {
		return err
	}
	return output.WriteRows(w, res.Columns, res.Rows)
}

func (s *session) meta(cmd string) error {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case `\dt`:
		return s.listTables()
	case `\d`:
		// psql lists every table when no name is given.
		if arg == "" {
			return s.listTables()
		}
		return s.describe(arg)
	case `\p`:
		if !strings.HasSuffix(arg, ";") {
			arg += ";"
		}
		stmt, err := ast.Parse(arg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, stmt)
		return err
	case `\save`:
		snap, err := s.save()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(s.out, "saved snapshot %s (%d tables, %d rows)\n", snap.ID, snap.Tables, snap.Rows)
		return err
	default:
		return errors.Errorf(`unknown command %s (try \dt, \d <table>, \p <sql>, \save or \q)`, name)
	}
}

func (s *session) listTables() error {
	cols := types.Schema{
		{Name: "name", Type: types.TextType},
		{Name: "columns", Type: types.IntType},
		{Name: "rows", Type: types.IntType},
	}
	var rows []types.Row
	for _, t := range s.eng.Catalog().Tables() {
		rows = append(rows, types.Row{
			types.Text(t.Name()),
			types.Int(len(t.Schema())),
			types.Int(t.Len()),
		})
	}
	w, err := output.New(s.format, s.out)
	if err != nil {
		return err
	}
	return output.WriteRows(w, cols, rows)
}

func (s *session) describe(table string) error {
	schema, err := s.eng.Catalog().Lookup(table)
	if err != nil {
		return err
	}
	cols := types.Schema{
		{Name: "column", Type: types.TextType},
		{Name: "type", Type: types.TextType},
		{Name: "default", Type: types.TextType},
	}
	rows := make([]types.Row, len(schema))
	for i, col := range schema {
		var def string
		if col.Default != nil {
			def = types.Literal(col.Default)
		}
		rows[i] = types.Row{types.Text(col.Name), types.Text(col.Type.String()), types.Text(def)}
	}
	w, err := output.New(s.format, s.out)
	if err != nil {
		return err
	}
	return output.WriteRows(w, cols, rows)
}

func (s *session) save() (*database.Snapshot, error) {
	if s.store == nil {
		return nil, errors.New("no snapshot file; start minisql with --db")
	}
	return s.store.Save(s.ctx, s.eng.Catalog())
}
