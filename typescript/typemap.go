package typescript

import (
	"fmt"
	"slices"
	"strings"

	"github.com/broady/ocpgen/schema"
)

// Context tells the mapper where a type is used, for diagnostics.
type Context struct {
	Location string
}

// TypeExpr is a rendered TypeScript type.
type TypeExpr struct {
	Text string

	// Refs lists the declared type names the expression mentions, in order
	// of first appearance.
	Refs []string
}

func (e *TypeExpr) addRefs(refs ...string) {
	for _, r := range refs {
		if !slices.Contains(e.Refs, r) {
			e.Refs = append(e.Refs, r)
		}
	}
}

// TypeMapper translates FieldTypes into TypeScript type expressions and default
// literals. Named objects are recorded once, in model order, so every emitter
// sees the same declarations.
type TypeMapper struct {
	quote         byte
	emitFactories bool

	defs     map[string]*schema.FieldType
	order    []string
	tsNames  map[string]string
	warnings []Warning
}

// NewTypeMapper returns an empty mapper.
func NewTypeMapper(cfg Config) *TypeMapper {
	cfg = cfg.withDefaults()
	return &TypeMapper{
		quote:         cfg.quoteChar(),
		emitFactories: cfg.EmitFactories,
		defs:          make(map[string]*schema.FieldType),
		tsNames:       make(map[string]string),
	}
}

// Register records every named object of m: the types section first, then each
// endpoint's fields in declaration order. The first declaration of a name wins;
// a later declaration with a different shape produces a warning.
func (tm *TypeMapper) Register(m *schema.Model) error {
	for _, t := range m.Types {
		if err := tm.register(t, "types."+t.Name); err != nil {
			return err
		}
	}
	for _, g := range m.Groups {
		for _, ep := range g.Endpoints {
			loc := g.Name + "." + ep.Name
			for _, f := range endpointTypes(ep) {
				if err := tm.register(f.Type, loc+"."+f.Name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// endpointTypes lists the types an endpoint mentions, labelled for diagnostics.
func endpointTypes(ep *schema.Endpoint) []schema.Field {
	var out []schema.Field
	for _, f := range ep.PathParams {
		out = append(out, schema.Field{Name: "path." + f.Name, Type: f.Type})
	}
	for _, f := range ep.Params {
		out = append(out, schema.Field{Name: "params." + f.Name, Type: f.Type})
	}
	for _, f := range ep.Query {
		out = append(out, schema.Field{Name: "query." + f.Name, Type: f.Type})
	}
	for _, named := range []schema.Field{
		{Name: "body", Type: ep.Body},
		{Name: "response", Type: ep.Response},
		{Name: "send", Type: ep.Send},
		{Name: "receive", Type: ep.Receive},
	} {
		if named.Type != nil {
			out = append(out, named)
		}
	}
	return out
}

func (tm *TypeMapper) register(t *schema.FieldType, loc string) error {
	var err error
	t.Walk(func(ft *schema.FieldType) bool {
		if err != nil {
			return false
		}
		if ft.Kind != schema.TypeObject || ft.Name == "" {
			return true
		}
		if prev, ok := tm.defs[ft.Name]; ok {
			if prev != ft && shapeKey(prev) != shapeKey(ft) {
				tm.warn(loc, "type %q redeclared with a different shape; keeping the first declaration", ft.Name)
			}
			return false
		}
		ts := typeName(ft.Name)
		if other, taken := tm.tsNames[ts]; taken {
			err = generationErrorf(loc, "type %q and type %q both generate the name %s", other, ft.Name, ts)
			return false
		}
		tm.defs[ft.Name] = ft
		tm.tsNames[ts] = ft.Name
		tm.order = append(tm.order, ft.Name)
		return true
	})
	return err
}

// shapeKey renders a structural fingerprint of t. Descriptions are ignored.
func shapeKey(t *schema.FieldType) string {
	if t == nil {
		return "-"
	}
	var b strings.Builder
	writeShape(&b, t)
	return b.String()
}

func writeShape(b *strings.Builder, t *schema.FieldType) {
	switch t.Kind {
	case schema.TypePrimitive:
		b.WriteString(t.Tag)
	case schema.TypeArray:
		b.WriteString("[")
		writeShape(b, t.Elem)
		b.WriteString("]")
	case schema.TypeRef:
		b.WriteString("&" + t.Name)
	case schema.TypeObject:
		b.WriteString("{")
		for _, p := range t.Properties {
			b.WriteString(p.Name)
			if !p.Required {
				b.WriteString("?")
			}
			b.WriteString(":")
			writeShape(b, p.Type)
			b.WriteString(";")
		}
		b.WriteString("}")
	}
	if t.Nullable {
		b.WriteString("|null")
	}
	for _, e := range t.Enum {
		b.WriteString("=" + e.Scalar())
	}
}

// Definitions returns the named objects in registration order.
func (tm *TypeMapper) Definitions() []*schema.FieldType {
	defs := make([]*schema.FieldType, len(tm.order))
	for i, name := range tm.order {
		defs[i] = tm.defs[name]
	}
	return defs
}

// Lookup returns the named object registered under name, or nil.
func (tm *TypeMapper) Lookup(name string) *schema.FieldType {
	return tm.defs[name]
}

// Resolve follows a reference to its declaration. Other types are returned as is.
func (tm *TypeMapper) Resolve(t *schema.FieldType) *schema.FieldType {
	if t != nil && t.Kind == schema.TypeRef {
		if def := tm.defs[t.Name]; def != nil {
			return def
		}
	}
	return t
}

// Warnings returns the warnings collected so far.
func (tm *TypeMapper) Warnings() []Warning {
	return slices.Clone(tm.warnings)
}

func (tm *TypeMapper) warn(loc, format string, args ...any) {
	tm.warnings = append(tm.warnings, Warning{Location: loc, Message: fmt.Sprintf(format, args...)})
}

// MapType renders t as a TypeScript type expression. A nil type maps to void.
func (tm *TypeMapper) MapType(t *schema.FieldType, ctx Context) (TypeExpr, error) {
	if t == nil {
		return TypeExpr{Text: "void"}, nil
	}
	expr, err := tm.mapBase(t, ctx)
	if err != nil {
		return TypeExpr{}, err
	}
	if t.Nullable {
		expr.Text += " | null"
	}
	return expr, nil
}

func (tm *TypeMapper) mapBase(t *schema.FieldType, ctx Context) (TypeExpr, error) {
	switch t.Kind {
	case schema.TypePrimitive:
		if len(t.Enum) > 0 {
			return tm.mapEnum(t, ctx)
		}
		text, ok := primitiveTypes[t.Tag]
		if !ok {
			return TypeExpr{}, generationErrorf(ctx.Location, "unsupported type %q", t.Tag)
		}
		return TypeExpr{Text: text}, nil

	case schema.TypeArray:
		elem, err := tm.MapType(t.Elem, Context{Location: ctx.Location + "[]"})
		if err != nil {
			return TypeExpr{}, err
		}
		elem.Text = "Array<" + elem.Text + ">"
		return elem, nil

	case schema.TypeRef:
		if _, ok := tm.defs[t.Name]; !ok {
			return TypeExpr{}, generationErrorf(ctx.Location, "unresolved type reference %q", t.Name)
		}
		name := typeName(t.Name)
		return TypeExpr{Text: name, Refs: []string{name}}, nil

	case schema.TypeObject:
		if t.Name != "" {
			name := typeName(t.Name)
			return TypeExpr{Text: name, Refs: []string{name}}, nil
		}
		return tm.mapInline(t, ctx)

	default:
		return TypeExpr{}, generationErrorf(ctx.Location, "unsupported type kind %s", t.Kind)
	}
}

var primitiveTypes = map[string]string{
	"string":  "string",
	"number":  "number",
	"integer": "number",
	"boolean": "boolean",
	"any":     "unknown",
}

func (tm *TypeMapper) mapEnum(t *schema.FieldType, ctx Context) (TypeExpr, error) {
	if _, ok := primitiveTypes[t.Tag]; !ok {
		return TypeExpr{}, generationErrorf(ctx.Location, "unsupported type %q", t.Tag)
	}
	parts := make([]string, 0, len(t.Enum))
	for _, member := range t.Enum {
		switch member.Kind {
		case schema.NodeString, schema.NodeNumber, schema.NodeBool, schema.NodeNull:
		default:
			return TypeExpr{}, generationErrorf(ctx.Location, "enum members must be scalars, got %s", member.Kind)
		}
		lit := tm.literal(member)
		if !slices.Contains(parts, lit) {
			parts = append(parts, lit)
		}
	}
	return TypeExpr{Text: strings.Join(parts, " | ")}, nil
}

func (tm *TypeMapper) mapInline(t *schema.FieldType, ctx Context) (TypeExpr, error) {
	if len(t.Properties) == 0 {
		return TypeExpr{Text: "Record<string, never>"}, nil
	}
	var expr TypeExpr
	parts := make([]string, 0, len(t.Properties))
	for _, p := range t.Properties {
		pe, err := tm.MapType(p.Type, Context{Location: ctx.Location + "." + p.Name})
		if err != nil {
			return TypeExpr{}, err
		}
		expr.addRefs(pe.Refs...)
		parts = append(parts, tm.PropertyKey(p.Name)+optionalMark(p.Required)+": "+pe.Text)
	}
	expr.Text = "{ " + strings.Join(parts, "; ") + " }"
	return expr, nil
}

func optionalMark(required bool) string {
	if required {
		return ""
	}
	return "?"
}

// PropertyKey renders name as an object key, quoting it when needed.
func (tm *TypeMapper) PropertyKey(name string) string {
	if needsQuoting(name) {
		return quoteString(name, tm.quote)
	}
	return name
}

// MapDefault renders the default value literal for t: the declared default,
// else the first enum member, null for nullable types, or the zero value of
// the type. Named objects use their default<Name>() factory when factories are
// emitted, otherwise an object literal of their required properties.
func (tm *TypeMapper) MapDefault(t *schema.FieldType) (string, error) {
	return tm.mapDefault(t, nil)
}

func (tm *TypeMapper) mapDefault(t *schema.FieldType, visiting []string) (string, error) {
	if t == nil {
		return "undefined", nil
	}
	if t.Default != nil {
		return tm.literal(t.Default), nil
	}
	if len(t.Enum) > 0 {
		return tm.literal(t.Enum[0]), nil
	}
	if t.Nullable {
		return "null", nil
	}

	switch t.Kind {
	case schema.TypePrimitive:
		switch t.Tag {
		case "string":
			return quoteString("", tm.quote), nil
		case "number", "integer":
			return "0", nil
		case "boolean":
			return "false", nil
		case "any":
			return "undefined", nil
		}
		return "", generationErrorf("", "unsupported type %q", t.Tag)

	case schema.TypeArray:
		return "[]", nil

	case schema.TypeRef, schema.TypeObject:
		def := t
		if t.Kind == schema.TypeRef {
			def = tm.defs[t.Name]
			if def == nil {
				return "", generationErrorf("", "unresolved type reference %q", t.Name)
			}
		}
		if def.Name != "" && tm.emitFactories {
			return "default" + typeName(def.Name) + "()", nil
		}
		if def.Name != "" {
			if slices.Contains(visiting, def.Name) {
				return "", generationErrorf("", "type %q has no finite default value", def.Name)
			}
			visiting = append(visiting, def.Name)
		}
		return tm.objectDefault(def, visiting)
	}
	return "", generationErrorf("", "unsupported type kind %s", t.Kind)
}

// objectDefault renders an object literal holding defaults for the required
// properties of t.
func (tm *TypeMapper) objectDefault(t *schema.FieldType, visiting []string) (string, error) {
	var parts []string
	for _, p := range t.Properties {
		if !p.Required {
			continue
		}
		v, err := tm.mapDefault(p.Type, visiting)
		if err != nil {
			return "", err
		}
		parts = append(parts, tm.PropertyKey(p.Name)+": "+v)
	}
	if len(parts) == 0 {
		return "{}", nil
	}
	return "{ " + strings.Join(parts, ", ") + " }", nil
}

// literal renders a document value as a TypeScript literal.
func (tm *TypeMapper) literal(n *schema.Node) string {
	switch n.Kind {
	case schema.NodeString:
		return quoteString(n.Text, tm.quote)
	case schema.NodeArray:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = tm.literal(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case schema.NodeObject:
		if len(n.Members) == 0 {
			return "{}"
		}
		parts := make([]string, len(n.Members))
		for i, m := range n.Members {
			parts[i] = tm.PropertyKey(m.Key) + ": " + tm.literal(m.Value)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return n.Scalar()
	}
}
