package typescript

import (
	"strconv"
	"strings"
	"unicode"
)

// reservedWords are names a generated parameter or declaration may not take.
// Strict-mode and contextual words used by the generated code are included.
var reservedWords = map[string]bool{
	"arguments": true, "await": true, "break": true, "case": true, "catch": true,
	"class": true, "const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "eval": true,
	"export": true, "extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true, "in": true,
	"instanceof": true, "interface": true, "let": true, "new": true, "null": true,
	"package": true, "private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "type": true, "typeof": true, "var": true,
	"void": true, "while": true, "with": true, "yield": true,
}

// escapeReservedWord appends an underscore to reserved words.
func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}

// needsQuoting reports whether a property key must be written as a string literal.
func needsQuoting(name string) bool {
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return true
	}
	for _, r := range name {
		if !isIdentRune(r) {
			return true
		}
	}
	return reservedWords[name]
}

// sanitizeIdentifier makes an identifier valid for TypeScript.
func sanitizeIdentifier(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	if unicode.IsDigit(rune(name[0])) {
		b.WriteRune('_')
	}
	for _, r := range name {
		if isIdentRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return escapeReservedWord(b.String())
}

// memberName is the camelCase name of a class member. Class members may use
// reserved words, so only invalid characters are replaced.
func memberName(name string) string {
	camel := toCamelCase(name)
	if camel == "" {
		return sanitizeIdentifier(name)
	}
	if unicode.IsDigit(rune(camel[0])) {
		return "_" + camel
	}
	return camel
}

// localName is the camelCase name of a parameter or local variable.
func localName(name string) string {
	camel := toCamelCase(name)
	if camel == "" {
		camel = name
	}
	return sanitizeIdentifier(camel)
}

// typeName is the PascalCase name of a declared type or class.
func typeName(name string) string {
	pascal := toPascalCase(name)
	if pascal == "" {
		pascal = name
	}
	return sanitizeIdentifier(pascal)
}

// scope hands out identifiers that are unique within one function signature.
type scope map[string]bool

func newScope(taken ...string) scope {
	s := scope{}
	for _, name := range taken {
		s[name] = true
	}
	return s
}

// claim returns name, or name with a numeric suffix when it is already used.
func (s scope) claim(name string) string {
	candidate := name
	for i := 2; s[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	s[candidate] = true
	return candidate
}
