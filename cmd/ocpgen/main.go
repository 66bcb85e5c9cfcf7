package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/broady/ocpgen"
	"github.com/broady/ocpgen/internal/config"
	"github.com/broady/ocpgen/internal/watch"
	"github.com/broady/ocpgen/sink"
)

type CLI struct {
	Schema string `arg:"" optional:"" help:"Path to the OCP schema document."`

	Output   string   `short:"o" default:"." help:"Output directory for the generated SDK."`
	Validate bool     `short:"v" help:"Validate the schema only; do not generate."`
	Config   string   `short:"c" env:"OCPGEN_CONFIG" help:"YAML options file."`
	Option   []string `short:"O" sep:"none" placeholder:"KEY=VALUE" help:"Set an option, overriding the options file and environment. Repeatable."`
	Stdout   bool     `help:"Write the SDK to stdout as a txtar archive instead of to the output directory."`
	Watch    bool     `short:"w" help:"Regenerate when the schema or options file changes."`
	LogLevel string   `default:"warn" enum:"debug,info,warn,error" env:"OCPGEN_LOG_LEVEL" help:"Log level (${enum})."`

	PrintConfigSchema bool `name:"print-config-schema" help:"Print the JSON Schema of the options file and exit."`

	Version kong.VersionFlag `help:"Show version."`
}

// exitCode carries a kong exit request out of the parser.
type exitCode int

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("ocpgen"),
		kong.Description("Open Config Protocol TypeScript SDK generator."),
		kong.Vars{"version": "ocpgen " + Version()},
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exitCode(c)) }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cli.PrintConfigSchema {
		data, err := config.Schema()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "%s\n", data)
		return 0
	}

	if cli.Schema == "" {
		fmt.Fprint(stderr, "Error: No schema file specified\n\n")
		_ = kctx.PrintUsage(false)
		return 1
	}
	return cli.Run(ctx, stdout, stderr)
}

// Run executes the parsed command and returns the process exit code.
func (c *CLI) Run(ctx context.Context, stdout, stderr io.Writer) int {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// Progress lines move to stderr when stdout carries the archive.
	progress := stdout
	if c.Stdout {
		progress = stderr
	}
	rep := newReporter(progress, stderr)

	err := c.generate(ctx, rep, logger, stdout)
	if !c.Watch || c.Validate || c.Stdout {
		if err != nil {
			rep.fail(err)
			return 1
		}
		return 0
	}
	if err != nil {
		rep.fail(err)
	}

	files := []string{c.Schema}
	if c.Config != "" {
		files = append(files, c.Config)
	}
	w := &watch.Watcher{
		Files:  files,
		Logger: logger,
		OnChange: func(ctx context.Context) error {
			if err := c.generate(ctx, rep, logger, stdout); err != nil {
				rep.fail(err)
			}
			return nil
		},
	}
	if err := w.Run(ctx); err != nil {
		rep.fail(err)
		return 1
	}
	return 0
}

// generate runs one validate-and-generate pass.
func (c *CLI) generate(ctx context.Context, rep *reporter, logger *slog.Logger, stdout io.Writer) error {
	opts, err := config.Load(config.Source{File: c.Config, Overrides: c.Option})
	if err != nil {
		return err
	}

	data, err := ocpgen.ReadSchema(c.Schema)
	if err != nil {
		if ocpgen.CodeOf(err) == ocpgen.CodeSchemaNotFound {
			abs, _ := filepath.Abs(c.Schema)
			return ocpgen.Errorf(ocpgen.CodeSchemaNotFound, "Schema file not found: %s", abs).WithCause(err)
		}
		return err
	}

	rep.step("Validating %s...", c.Schema)
	if _, err := ocpgen.LoadModel(data); err != nil {
		var e *ocpgen.Error
		if errors.As(err, &e) && e.Code == ocpgen.CodeValidation {
			rep.violations(e.Violations)
			return errReported
		}
		return err
	}
	rep.done("Schema is valid.")
	if c.Validate {
		return nil
	}

	gen := ocpgen.FromBytes(data).WithConfig(opts.TypeScript()).WithLogger(logger)
	if !opts.Prune {
		gen = gen.WithoutPrune()
	}

	if c.Stdout {
		ts := sink.NewTxtarSink("Generated by ocpgen from " + filepath.Base(c.Schema) + ".\n")
		if _, err := gen.ToSink(ctx, ts); err != nil {
			return err
		}
		if _, err := ts.WriteTo(stdout); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		return nil
	}

	dir, err := filepath.Abs(c.Output)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	res, err := gen.ToDir(ctx, dir)
	if err != nil {
		return err
	}
	for _, p := range res.Pruned {
		rep.note("  removed %s", p)
	}
	rep.step("")
	rep.done("SDK generated in " + dir)
	return nil
}
