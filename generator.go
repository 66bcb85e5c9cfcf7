// Package ocpgen generates TypeScript client SDKs from OCP schema documents.
package ocpgen

import (
	"context"
	"log/slog"
	"os"

	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
	"github.com/broady/ocpgen/typescript"
)

// ReadSchema reads the document at path. A missing file is CodeSchemaNotFound.
func ReadSchema(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

// LoadModel parses and validates a document. Validation failures are returned
// as one *Error with every violation, in check order.
func LoadModel(data []byte) (*schema.Model, error) {
	root, err := schema.Parse(data)
	if err != nil {
		return nil, classify(err)
	}
	m, violations := schema.Validate(root)
	if len(violations) > 0 {
		return nil, NewError(CodeValidation, "schema is invalid").WithViolations(schema.Messages(violations))
	}
	return m, nil
}

// Result is the outcome of a generation run.
type Result struct {
	Model     *schema.Model
	Artifacts []sink.Artifact
	Warnings  []typescript.Warning

	// Pruned lists files removed from the output root because the previous run
	// produced them and this one did not.
	Pruned []string
}

// Generator provides a fluent API for code generation.
// Create with FromFile() or FromBytes() and configure with method chaining.
//
// Example:
//
//	ocpgen.FromFile("api.ocp.json").
//	    WithConfig(cfg).
//	    ToDir(ctx, "./sdk")
type Generator struct {
	path    string
	data    []byte
	cfg     typescript.Config
	logger  *slog.Logger
	noPrune bool
}

// FromFile creates a Generator reading the document at path.
func FromFile(path string) *Generator {
	return &Generator{path: path, cfg: typescript.DefaultConfig()}
}

// FromBytes creates a Generator for an in-memory document.
func FromBytes(data []byte) *Generator {
	return &Generator{data: data, cfg: typescript.DefaultConfig()}
}

// WithConfig replaces the output configuration.
func (g *Generator) WithConfig(cfg typescript.Config) *Generator {
	g.cfg = cfg
	return g
}

// WithLogger sets the logger. A nil logger uses slog.Default().
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.logger = logger
	return g
}

// WithoutPrune keeps files from earlier runs that this run no longer produces.
func (g *Generator) WithoutPrune() *Generator {
	g.noPrune = true
	return g
}

func (g *Generator) log() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}

// Load reads, parses and validates the document.
func (g *Generator) Load() (*schema.Model, error) {
	data := g.data
	if data == nil {
		var err error
		if data, err = ReadSchema(g.path); err != nil {
			return nil, err
		}
	}
	m, err := LoadModel(data)
	if err != nil {
		return nil, err
	}
	g.log().Debug("schema loaded",
		slog.String("path", g.path),
		slog.String("protocol", string(m.Protocol)),
		slog.Int("groups", len(m.Groups)),
		slog.Int("endpoints", m.EndpointCount()),
	)
	return m, nil
}

// Generate returns the artifacts in memory without writing them.
// Use ToDir() or ToSink() to write them.
func (g *Generator) Generate() (*Result, error) {
	m, err := g.Load()
	if err != nil {
		return nil, err
	}
	res, err := typescript.Generate(m, g.cfg)
	if err != nil {
		return nil, classify(err)
	}
	for _, w := range res.Warnings {
		g.log().Warn("generation warning",
			slog.String("location", w.Location),
			slog.String("message", w.Message),
		)
	}
	g.log().Debug("artifacts staged", slog.Int("count", len(res.Artifacts)))
	return &Result{Model: m, Artifacts: res.Artifacts, Warnings: res.Warnings}, nil
}

// ToSink generates and hands every artifact to s in order. Nothing is written
// unless generation succeeds completely.
func (g *Generator) ToSink(ctx context.Context, s sink.OutputSink) (*Result, error) {
	res, err := g.Generate()
	if err != nil {
		return nil, err
	}
	if err := sink.Write(ctx, s, res.Artifacts); err != nil {
		return res, classify(err)
	}
	return res, nil
}

// ToDir generates into dir, creating it if needed. Files listed in the
// previous run's manifest that are no longer produced are removed, then the
// manifest is rewritten.
func (g *Generator) ToDir(ctx context.Context, dir string) (*Result, error) {
	res, err := g.Generate()
	if err != nil {
		return nil, err
	}

	fs := sink.NewFilesystemSink(dir)
	if err := fs.EnsureRoot(); err != nil {
		return res, NewError(CodeFilesystem, err.Error()).WithCause(err)
	}
	if err := sink.Write(ctx, fs, res.Artifacts); err != nil {
		return res, classify(err)
	}

	if !g.noPrune {
		removed, err := sink.Prune(fs, res.Artifacts)
		if err != nil {
			return res, NewError(CodeFilesystem, err.Error()).WithCause(err)
		}
		for _, p := range removed {
			g.log().Info("removed stale file", slog.String("path", p))
		}
		res.Pruned = removed
	}
	if err := fs.WriteFile(ctx, sink.ManifestPath, sink.Manifest(res.Artifacts)); err != nil {
		return res, NewError(CodeFilesystem, err.Error()).WithCause(err)
	}

	g.log().Info("sdk generated",
		slog.String("dir", dir),
		slog.Int("files", len(res.Artifacts)),
	)
	return res, nil
}
