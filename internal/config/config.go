// Package config layers generator options from defaults, a YAML file, the
// environment and command-line overrides.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"reflect"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/broady/ocpgen/typescript"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OCPGEN_"

// Options controls the generated package. The same keys are used in the YAML
// file, in -O key=value overrides and, upper-cased, in OCPGEN_* variables.
type Options struct {
	IndentStyle   string `yaml:"indent_style" json:"indent_style,omitempty" env:"INDENT_STYLE" schema:"indent_style" validate:"oneof=space tab" jsonschema:"enum=space,enum=tab,description=Indentation character for generated code"`
	IndentSize    int    `yaml:"indent_size" json:"indent_size,omitempty" env:"INDENT_SIZE" schema:"indent_size" validate:"min=1,max=8" jsonschema:"minimum=1,maximum=8,description=Spaces per indentation level"`
	Quote         string `yaml:"quote" json:"quote,omitempty" env:"QUOTE" schema:"quote" validate:"oneof=single double" jsonschema:"enum=single,enum=double,description=Quote style for string literals"`
	PackageName   string `yaml:"package_name" json:"package_name,omitempty" env:"PACKAGE_NAME" schema:"package_name" validate:"omitempty,max=214,lowercase" jsonschema:"maxLength=214,description=package.json name; defaults to the kebab-cased API name"`
	EmitOpenAPI   bool   `yaml:"emit_openapi" json:"emit_openapi,omitempty" env:"EMIT_OPENAPI" schema:"emit_openapi" jsonschema:"description=Add openapi.json to REST output"`
	EmitReadme    bool   `yaml:"emit_readme" json:"emit_readme,omitempty" env:"EMIT_README" schema:"emit_readme" jsonschema:"description=Add README.md to the output"`
	EmitFactories bool   `yaml:"emit_factories" json:"emit_factories,omitempty" env:"EMIT_FACTORIES" schema:"emit_factories" jsonschema:"description=Add default<Type>() factories to src/types.ts"`
	Prune         bool   `yaml:"prune" json:"prune,omitempty" env:"PRUNE" schema:"prune" jsonschema:"description=Remove files produced by an earlier run that this run no longer produces"`
}

// Default returns the options used when nothing overrides them.
func Default() Options {
	ts := typescript.DefaultConfig()
	return Options{
		IndentStyle:   ts.IndentStyle,
		IndentSize:    ts.IndentSize,
		Quote:         ts.Quote,
		EmitOpenAPI:   ts.EmitOpenAPI,
		EmitReadme:    ts.EmitReadme,
		EmitFactories: ts.EmitFactories,
		Prune:         true,
	}
}

// TypeScript converts the options to an emitter configuration.
func (o Options) TypeScript() typescript.Config {
	return typescript.Config{
		IndentStyle:   o.IndentStyle,
		IndentSize:    o.IndentSize,
		Quote:         o.Quote,
		PackageName:   o.PackageName,
		EmitOpenAPI:   o.EmitOpenAPI,
		EmitReadme:    o.EmitReadme,
		EmitFactories: o.EmitFactories,
	}
}

// Source names the layers Load combines. Zero values skip a layer.
type Source struct {
	// File is a YAML options file.
	File string

	// Environ holds environment variables. Nil means the process environment.
	Environ map[string]string

	// Overrides are key=value pairs, applied last.
	Overrides []string
}

// Load builds Options from defaults, then src.File, then the environment,
// then src.Overrides, and validates the result.
func Load(src Source) (Options, error) {
	opts := Default()

	if src.File != "" {
		if err := decodeFile(src.File, &opts); err != nil {
			return Options{}, err
		}
	}

	envOpts := env.Options{Prefix: EnvPrefix}
	if src.Environ != nil {
		envOpts.Environment = src.Environ
	}
	if err := env.ParseWithOptions(&opts, envOpts); err != nil {
		return Options{}, fmt.Errorf("environment: %w", err)
	}

	if err := applyOverrides(&opts, src.Overrides); err != nil {
		return Options{}, err
	}

	if err := Validate(opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// FileError reports an options file that does not match the options schema.
type FileError struct {
	Path     string
	Problems []string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(e.Problems, "; "))
}

func decodeFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if problems := checkDocument(data); len(problems) > 0 {
		return &FileError{Path: path, Problems: problems}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// checkDocument validates YAML content against the reflected options schema.
func checkDocument(data []byte) []string {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return []string{err.Error()}
	}
	if raw == nil {
		return nil
	}

	// Round-trip through JSON so numbers and maps take the shapes the
	// validator expects.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return []string{fmt.Sprintf("options must be a mapping: %v", err)}
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return []string{err.Error()}
	}

	sch, err := compiledSchema()
	if err != nil {
		return []string{err.Error()}
	}
	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *sjsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var problems []string
	for _, cause := range flatten(ve) {
		loc := strings.Join(cause.InstanceLocation, ".")
		if loc == "" {
			problems = append(problems, fmt.Sprintf("%v", cause.ErrorKind))
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %v", loc, cause.ErrorKind))
	}
	return problems
}

// flatten collects the leaf validation errors.
func flatten(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}

// Schema returns the JSON Schema of the options file.
func Schema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Options{})
	s.ID = "https://github.com/broady/ocpgen/schemas/options.json"
	s.Title = "ocpgen options"
	s.Description = "Options file for the ocpgen TypeScript SDK generator"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

func compiledSchema() (*sjsonschema.Schema, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("options.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("options.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// applyOverrides decodes key=value pairs onto opts.
func applyOverrides(opts *Options, pairs []string) error {
	if len(pairs) == 0 {
		return nil
	}
	values := url.Values{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("option %q: want key=value", p)
		}
		values.Set(key, value)
	}

	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(false)
	if err := dec.Decode(opts, values); err != nil {
		return fmt.Errorf("option: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints on opts.
func Validate(opts Options) error {
	err := validate.Struct(opts)
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, ve.Field()+": "+formatValidationError(ve))
	}
	return fmt.Errorf("invalid options: %s", strings.Join(messages, "; "))
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		if ve.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", ve.Param())
		}
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "lowercase":
		return "must be lowercase"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
