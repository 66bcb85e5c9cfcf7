package typescript

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const generatedHeader = "// Code generated by ocpgen. DO NOT EDIT."

// codeWriter accumulates one generated source file.
type codeWriter struct {
	buf    bytes.Buffer
	indent string
	quote  byte
	level  int
}

func newCodeWriter(cfg Config) *codeWriter {
	return &codeWriter{indent: cfg.indent(), quote: cfg.quoteChar()}
}

// line writes s at the current indentation. An empty s writes a blank line.
func (w *codeWriter) line(s string) {
	if s != "" {
		for i := 0; i < w.level; i++ {
			w.buf.WriteString(w.indent)
		}
		w.buf.WriteString(s)
	}
	w.buf.WriteByte('\n')
}

// open writes s and indents the following lines.
func (w *codeWriter) open(s string) {
	w.line(s)
	w.level++
}

// close dedents and writes s.
func (w *codeWriter) close(s string) {
	w.level--
	w.line(s)
}

// snippet writes a fixed block of TypeScript authored with two-space
// indentation and single-quoted strings, converted to the configured style.
func (w *codeWriter) snippet(text string) {
	text = strings.TrimPrefix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	for _, l := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			w.line("")
			continue
		}
		if w.quote == '"' {
			trimmed = strings.ReplaceAll(trimmed, "'", "\"")
		}
		depth := (len(l) - len(trimmed)) / 2
		w.level += depth
		w.line(trimmed)
		w.level -= depth
	}
}

func (w *codeWriter) header() {
	w.line(generatedHeader)
	w.line("")
}

func (w *codeWriter) str(s string) string {
	return quoteString(s, w.quote)
}

func (w *codeWriter) bytes() []byte {
	return w.buf.Bytes()
}

// doc writes a JSDoc block. Nothing is written when text is empty and the
// element is not deprecated.
func (w *codeWriter) doc(text string, deprecated bool) {
	lines := docLines(text)
	if len(lines) == 0 && !deprecated {
		return
	}
	if len(lines) == 1 && !deprecated {
		w.line("/** " + lines[0] + " */")
		return
	}
	w.line("/**")
	for _, l := range lines {
		if l == "" {
			w.line(" *")
			continue
		}
		w.line(" * " + l)
	}
	if deprecated {
		w.line(" * @deprecated")
	}
	w.line(" */")
}

var (
	docPolicyOnce sync.Once
	docPolicy     *bluemonday.Policy
)

func docSanitizer() *bluemonday.Policy {
	docPolicyOnce.Do(func() {
		docPolicy = bluemonday.StrictPolicy()
	})
	return docPolicy
}

// docLines strips markup from a description and splits it into comment-safe lines.
func docLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	cleaned := html.UnescapeString(docSanitizer().Sanitize(text))
	cleaned = strings.ReplaceAll(cleaned, "*/", "*\\/")

	var lines []string
	for _, l := range strings.Split(cleaned, "\n") {
		lines = append(lines, strings.TrimSpace(l))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// quoteString renders s as a JavaScript string literal delimited by q.
func quoteString(s string, q byte) string {
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x2028 || r == 0x2029:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// templateText escapes s for use inside a template literal.
func templateText(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`", "${", "\\${")
	return r.Replace(s)
}
