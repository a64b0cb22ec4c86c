package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/boxesandglue/inlinestyles"
)

const stdinSource = "-"

func runInline(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	opts := e.Cfg.Inline
	if cmd.Bool("merge-shared") {
		opts.OnlyMatchedOnce = false
	}
	if cmd.Bool("keep-selectors") {
		opts.RemoveMatchedSelectors = false
	}
	fragment := e.Cfg.Document.Fragment || cmd.Bool("fragment")
	overwrite := cmd.Bool("overwrite")

	sources := cmd.Args().Slice()
	switch {
	case len(sources) == 0:
		return errors.New("no SOURCE specified")
	case len(sources) > 1 && !overwrite:
		return errors.New("more than one SOURCE requires --overwrite")
	}

	in := inlinestyles.New(opts)
	in.Log = e.Log

	var err error
	for _, src := range sources {
		if ctx.Err() != nil {
			return multierr.Append(err, ctx.Err())
		}
		rpt, er := inlineSource(in, src, fragment, overwrite, cmd.Root().Writer)
		if er != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", src, er))
			continue
		}
		e.Log.Info("Styles inlined",
			zap.String("source", src),
			zap.Int("selectors", rpt.Selectors),
			zap.Int("inlined", rpt.Inlined),
			zap.Int("elements", rpt.Elements))
		if cmd.Bool("stats") {
			fmt.Fprintf(cmd.Root().ErrWriter, "%s\n%s\n", src, rpt.String())
		}
	}
	return err
}

// inlineSource processes a single file. The result replaces the file when
// overwrite is set and goes to out otherwise.
func inlineSource(in *inlinestyles.Inliner, src string, fragment, overwrite bool, out io.Writer) (inlinestyles.Report, error) {
	var (
		r    io.Reader
		perm os.FileMode = 0644
	)
	if src == stdinSource {
		if overwrite {
			return inlinestyles.Report{}, errors.New("standard input cannot be overwritten")
		}
		r = os.Stdin
	} else {
		f, err := os.Open(src)
		if err != nil {
			return inlinestyles.Report{}, err
		}
		defer f.Close()
		if fi, err := f.Stat(); err == nil {
			perm = fi.Mode().Perm()
		}
		r = f
	}

	doc, err := inlinestyles.LoadDocument(r, fragment)
	if err != nil {
		return inlinestyles.Report{}, fmt.Errorf("unable to parse document: %w", err)
	}
	rpt, err := in.Apply(doc)
	if err != nil {
		return rpt, err
	}

	var buf bytes.Buffer
	if err := inlinestyles.Render(&buf, doc); err != nil {
		return rpt, fmt.Errorf("unable to render document: %w", err)
	}
	if overwrite {
		return rpt, os.WriteFile(src, buf.Bytes(), perm)
	}
	_, err = out.Write(buf.Bytes())
	return rpt, err
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	var (
		data []byte
		err  error
	)
	if cmd.Bool("default") {
		data, err = Prepare()
	} else {
		data, err = Dump(envFromContext(ctx).Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if cmd.NArg() == 0 {
		_, err = cmd.Root().Writer.Write(data)
		return err
	}
	fname := cmd.Args().Get(0)
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write configuration to '%s': %w", fname, err)
	}
	return nil
}
