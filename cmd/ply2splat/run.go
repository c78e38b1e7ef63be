package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/banshee-data/ply2splat/internal/config"
	"github.com/banshee-data/ply2splat/internal/convert"
	"github.com/banshee-data/ply2splat/internal/db"
	"github.com/banshee-data/ply2splat/internal/monitoring"
	"github.com/banshee-data/ply2splat/internal/stats"
	"github.com/banshee-data/ply2splat/internal/version"
)

var errUsage = errors.New("-input and -output are required")

type cliFlags struct {
	input      string
	output     string
	noSort     bool
	configPath string
	dbPath     string
	report     string
	workers    int
	quiet      bool
	verbose    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("ply2splat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.input, "input", "", "input PLY file")
	fs.StringVar(&f.output, "output", "", "output SPLAT file")
	fs.BoolVar(&f.noSort, "no-sort", false, "keep input order instead of sorting by size and opacity")
	fs.StringVar(&f.configPath, "config", "", "path to JSON conversion config (optional)")
	fs.StringVar(&f.dbPath, "db", "", "record the run in this sqlite history database")
	fs.StringVar(&f.report, "report", "", "write a volume histogram report (.png or .html)")
	fs.IntVar(&f.workers, "workers", 0, "worker goroutines (0 = config or NumCPU)")
	fs.BoolVar(&f.quiet, "quiet", false, "suppress progress output")
	fs.BoolVar(&f.verbose, "verbose", false, "enable diagnostic logging")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(stdout, "ply2splat %s\n", version.String())
		return nil
	}
	if f.input == "" || f.output == "" {
		return errUsage
	}
	if !f.verbose {
		monitoring.SetLogger(nil)
	}
	out := stdout
	if f.quiet {
		out = io.Discard
	}

	cfg := config.EmptyConvertConfig()
	if f.configPath != "" {
		if cfg, err = config.LoadConvertConfig(f.configPath); err != nil {
			return err
		}
	}
	opts := convert.OptionsFromConfig(cfg)
	if f.noSort {
		opts.Sort = false
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}
	dbPath := f.dbPath
	if dbPath == "" {
		dbPath = cfg.GetHistoryDB()
	}

	var sp *spinner
	c := convert.NewConverter(opts)
	c.OnPhaseStart = func(p convert.Phase) {
		switch p {
		case convert.PhaseRead:
			fmt.Fprintf(out, "Reading PLY file: %q\n", f.input)
		case convert.PhaseProcess:
			if opts.Sort {
				fmt.Fprintln(out, "Processing and sorting...")
			} else {
				fmt.Fprintln(out, "Processing (sorting disabled)...")
			}
			if !f.quiet {
				sp = startSpinner(out, "Converting...")
			}
		case convert.PhaseWrite:
			fmt.Fprintf(out, "Writing SPLAT file: %q\n", f.output)
		}
	}
	c.OnPhaseEnd = func(p convert.Phase, took time.Duration, n int) {
		switch p {
		case convert.PhaseRead:
			fmt.Fprintf(out, "Loaded %d vertices in %.2fs\n", n, took.Seconds())
		case convert.PhaseProcess:
			if sp != nil {
				sp.stop()
				sp = nil
			}
			fmt.Fprintf(out, "Processed in %.2fs\n", took.Seconds())
		case convert.PhaseWrite:
			fmt.Fprintf(out, "Written to %q in %.2fs\n", f.output, took.Seconds())
		}
	}

	res, err := c.Convert(ctx, f.input, f.output)
	if sp != nil {
		sp.stop()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total time: %.2fs\n", res.Total.Seconds())

	if dbPath != "" {
		if err := recordRun(ctx, dbPath, res); err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded run %s in %s\n", res.RunID, dbPath)
	}
	if f.report != "" {
		if err := writeReport(f.report, res, cfg.GetHistogramBins()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", f.report)
	}
	return nil
}

func recordRun(ctx context.Context, path string, res *convert.Result) error {
	history, err := db.Open(path)
	if err != nil {
		return err
	}
	defer history.Close()

	_, err = history.RecordRun(ctx, db.Run{
		ID:      res.RunID,
		Input:   res.Input,
		Output:  res.Output,
		Points:  res.Points,
		Sorted:  res.Sorted,
		Read:    res.Read,
		Process: res.Process,
		Write:   res.Write,
		Total:   res.Total,
	})
	return err
}

func writeReport(path string, res *convert.Result, bins int) error {
	title := fmt.Sprintf("Splat volume: %s", filepath.Base(res.Input))
	values := stats.Volumes(res.Records)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return stats.WriteHistogramPNG(path, title, values, bins)
	case ".html":
		fh, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		if err := stats.WriteHistogramHTML(fh, title, values, bins); err != nil {
			fh.Close()
			return err
		}
		return fh.Close()
	default:
		return fmt.Errorf("unsupported report type %q (want .png or .html)", filepath.Ext(path))
	}
}

// spinner animates an indeterminate progress bar until stopped.
type spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func startSpinner(w io.Writer, desc string) *spinner {
	s := &spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
	return s
}

func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		_ = s.bar.Finish()
	})
}
