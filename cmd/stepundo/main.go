// Package main is the entry point for the stepundo script runner.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/stepundo/internal/config"
	"github.com/dshills/stepundo/internal/engine"
	"github.com/dshills/stepundo/internal/engine/jsondoc"
	"github.com/dshills/stepundo/internal/logging"
	"github.com/dshills/stepundo/internal/script"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errUsage reports bad command-line usage; flag has already printed why.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	ConfigPath string
	LogLevel   string
	InputPath  string
	JSONPath   string
	Watch      bool
	Scripts    []string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, exit, err := parseFlags(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if exit {
		return 0
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg, opts.LogLevel, stderr)

	if err := runAll(ctx, cfg, opts, logger, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if !opts.Watch {
			return 1
		}
	}

	if !opts.Watch || opts.ConfigPath == "" {
		return 0
	}

	logger.Info("watching %s for changes", opts.ConfigPath)
	err = config.Watch(ctx, opts.ConfigPath,
		func(next *config.Config) {
			logger.SetLevel(levelFor(next, opts.LogLevel))
			logger.Info("config changed, re-running scripts")
			if err := runAll(ctx, next, opts, logger, stdout); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
		},
		func(err error) {
			logger.Warn("config reload failed: %v", err)
		})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stdout, stderr io.Writer) (opts options, exit bool, err error) {
	fs := flag.NewFlagSet("stepundo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var showVersion bool
	var showHelp bool

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	fs.StringVar(&opts.InputPath, "input", "", "Initial buffer content file")
	fs.StringVar(&opts.InputPath, "i", "", "Initial buffer content file (shorthand)")
	fs.StringVar(&opts.JSONPath, "json", "", "JSON document exposed to scripts as doc")
	fs.BoolVar(&opts.Watch, "watch", false, "Re-run scripts when the config file changes")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	fs.BoolVar(&showHelp, "help", false, "Show help message")
	fs.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "stepundo - run Lua edit scripts with undo history\n\n")
		fmt.Fprintf(stderr, "Usage: stepundo [options] script.lua...\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  stepundo edit.lua                   Run against an empty buffer\n")
		fmt.Fprintf(stderr, "  stepundo -i notes.txt edit.lua      Start from a file\n")
		fmt.Fprintf(stderr, "  stepundo -json doc.json patch.lua   Edit a JSON document\n")
		fmt.Fprintf(stderr, "  stepundo -c cfg.toml -watch a.lua   Re-run on config change\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, true, nil
		}
		return opts, false, errUsage
	}

	if showHelp {
		fs.Usage()
		return opts, true, nil
	}

	if showVersion {
		fmt.Fprintf(stdout, "stepundo %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, true, nil
	}

	if opts.LogLevel != "" {
		if _, ok := logging.ParseLogLevel(opts.LogLevel); !ok {
			return opts, false, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.LogLevel)
		}
	}

	opts.Scripts = fs.Args()
	if len(opts.Scripts) == 0 {
		fs.Usage()
		return opts, false, errUsage
	}
	return opts, false, nil
}

func levelFor(cfg *config.Config, override string) logging.LogLevel {
	if level, ok := logging.ParseLogLevel(override); ok {
		return level
	}
	return cfg.LogLevel()
}

func newLogger(cfg *config.Config, override string, w io.Writer) *logging.Logger {
	lc := logging.DefaultConfig()
	lc.Level = levelFor(cfg, override)
	lc.Output = w
	return logging.New(lc)
}

// runAll runs every script concurrently, each against its own engine and
// document, and prints the results in command-line order.
func runAll(ctx context.Context, cfg *config.Config, opts options, logger *logging.Logger, w io.Writer) error {
	input, err := readOptional(opts.InputPath)
	if err != nil {
		return err
	}
	jsonInput, err := readOptional(opts.JSONPath)
	if err != nil {
		return err
	}

	results := make([]*script.Result, len(opts.Scripts))
	errs := make([]error, len(opts.Scripts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range opts.Scripts {
		g.Go(func() error {
			res, err := runOne(gctx, cfg, logger, path, input, jsonInput, opts.JSONPath != "")
			results[i], errs[i] = res, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		printResult(w, opts.Scripts[i], res, errs[i])
	}
	return errors.Join(errs...)
}

func runOne(ctx context.Context, cfg *config.Config, logger *logging.Logger, path string, input, jsonInput []byte, withJSON bool) (*script.Result, error) {
	log := logger.WithField("script", path)

	e, err := engine.NewFromReader(bytes.NewReader(input), cfg.EngineOptions(log)...)
	if err != nil {
		return nil, err
	}

	ropts := []script.Option{
		script.WithTimeout(cfg.Script.Timeout.Std()),
		script.WithCallStackSize(cfg.Script.CallStackSize),
		script.WithLogger(log),
	}
	if withJSON {
		doc, err := jsondoc.Parse(jsonInput)
		if err != nil {
			return nil, err
		}
		ropts = append(ropts, script.WithDocument(jsondoc.NewEditor(doc, cfg.JSONOptions(log)...)))
	}

	return script.NewRunner(e, ropts...).RunFile(ctx, path)
}

func printResult(w io.Writer, path string, res *script.Result, err error) {
	fmt.Fprintf(w, "== %s ==\n", path)
	if res != nil {
		for _, line := range res.Output {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "-- text (%d undo, %d redo) --\n", res.UndoCount, res.RedoCount)
		fmt.Fprintln(w, res.Text)
		if res.JSON != "" {
			fmt.Fprintln(w, "-- json --")
			if doc, perr := jsondoc.Parse([]byte(res.JSON)); perr == nil {
				fmt.Fprint(w, doc.Pretty())
			} else {
				fmt.Fprintln(w, res.JSON)
			}
		}
	}
	if err != nil {
		fmt.Fprintf(w, "-- error --\n%v\n", err)
	}
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
