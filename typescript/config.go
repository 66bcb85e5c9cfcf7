package typescript

import "strings"

// Config controls the shape of the generated TypeScript package.
type Config struct {
	// IndentStyle is "space" or "tab".
	IndentStyle string

	// IndentSize is the number of spaces per level when IndentStyle is "space".
	IndentSize int

	// Quote is "single" or "double" and applies to string literals.
	Quote string

	// PackageName overrides the package.json name. Defaults to the kebab-cased API name.
	PackageName string

	// EmitOpenAPI adds openapi.json to REST output.
	EmitOpenAPI bool

	// EmitReadme adds README.md to the output.
	EmitReadme bool

	// EmitFactories adds default<Type>() factories to src/types.ts.
	EmitFactories bool
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		IndentStyle:   "space",
		IndentSize:    2,
		Quote:         "single",
		EmitOpenAPI:   true,
		EmitReadme:    true,
		EmitFactories: true,
	}
}

// withDefaults returns a copy of c with unset formatting fields filled in.
func (c Config) withDefaults() Config {
	if c.IndentStyle == "" {
		c.IndentStyle = "space"
	}
	if c.IndentSize <= 0 {
		c.IndentSize = 2
	}
	if c.Quote == "" {
		c.Quote = "single"
	}
	return c
}

func (c Config) indent() string {
	if c.IndentStyle == "tab" {
		return "\t"
	}
	return strings.Repeat(" ", c.IndentSize)
}

func (c Config) quoteChar() byte {
	if c.Quote == "double" {
		return '"'
	}
	return '\''
}
