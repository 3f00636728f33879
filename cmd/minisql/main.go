package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kevin-cantwell/minisql/internal/catalog"
	"github.com/kevin-cantwell/minisql/internal/database"
	"github.com/kevin-cantwell/minisql/internal/engine"
	"github.com/kevin-cantwell/minisql/internal/output"
	"github.com/kevin-cantwell/minisql/internal/source"
)

var version = "dev"

type options struct {
	db      string
	format  string
	command string
	sources []string
	debug   bool
	version bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := options{}

	cmd := &cobra.Command{
		Use:          "minisql",
		Short:        "A minimal SQL engine with CREATE TABLE, INSERT and SELECT",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.version {
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			if o.debug {
				logger.SetLevel(logrus.DebugLevel)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			return o.run(ctx, logger, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	o.addFlags(cmd.Flags())

	return cmd
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.db, "db", os.Getenv("MINISQL_DB"), "SQLite snapshot file to restore on start and save on exit")
	fs.StringVar(&o.format, "format", "table", "result format: table or json")
	fs.StringVarP(&o.command, "command", "c", "", "run the given statements and exit")
	fs.StringArrayVar(&o.sources, "source", nil, "load records into an existing table before running, as table=uri (file://, sqlite://path#table, stdin); repeatable")
	fs.BoolVar(&o.debug, "debug", false, "use debug log level")
	fs.BoolVar(&o.version, "version", false, "displays the minisql version")
}

func (o *options) run(ctx context.Context, logger *logrus.Logger, in io.Reader, out io.Writer) (finalErr error) {
	if _, err := output.New(o.format, out); err != nil {
		return err
	}

	cat := catalog.New()
	var store *database.Store
	if o.db != "" {
		var err error
		store, err = database.Open(o.db, database.WithLogger(logger))
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.Load(ctx, cat)
		switch {
		case errors.Is(err, database.ErrNoSnapshot):
			logger.Debugf("no snapshot in %s, starting empty", o.db)
		case err != nil:
			return err
		default:
			logger.WithField("snapshot", snap.ID).Debugf("restored %d tables from %s", snap.Tables, o.db)
		}
	}

	eng := engine.New(engine.WithCatalog(cat), engine.WithLogger(logger))

	for _, flag := range o.sources {
		if err := loadSource(ctx, logger, eng, flag); err != nil {
			return err
		}
	}

	sess := &session{
		ctx:    ctx,
		eng:    eng,
		store:  store,
		format: o.format,
		out:    out,
	}

	if store != nil {
		defer func() {
			if finalErr != nil {
				return
			}
			snap, err := sess.save()
			if err != nil {
				finalErr = err
				return
			}
			logger.WithField("snapshot", snap.ID).Debugf("saved %d tables to %s", snap.Tables, o.db)
		}()
	}

	if o.command != "" {
		return sess.exec(o.command)
	}
	return sess.repl(in)
}

func loadSource(ctx context.Context, logger logrus.FieldLogger, eng *engine.Engine, flag string) error {
	cfg, err := source.ParseFlag(flag)
	if err != nil {
		return err
	}
	src, err := source.NewSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	n, err := eng.Load(ctx, cfg.Name, src)
	if err != nil {
		return errors.Wrapf(err, "load %s", flag)
	}
	logger.Infof("loaded %s rows into %s", humanize.Comma(int64(n)), cfg.Name)
	return nil
}
