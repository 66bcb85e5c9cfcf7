package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Violation codes.
const (
	CodeMissingMarker    = "missing_marker"
	CodeMissingType      = "missing_type"
	CodeMissingVersion   = "missing_version"
	CodeInvalidType      = "invalid_protocol"
	CodeMissingMeta      = "missing_meta"
	CodeMissingName      = "missing_name"
	CodeMissingBaseURL   = "missing_base_url"
	CodeMissingEndpoints = "missing_endpoints"
	CodeInvalidEndpoints = "invalid_endpoints"
	CodeMissingPath      = "missing_path"
	CodeInvalidPath      = "invalid_path"
	CodeInvalidMethod    = "invalid_method"
	CodeInvalidGroup     = "invalid_group"
	CodeInvalidShape     = "invalid_shape"
	CodeDuplicateParam   = "duplicate_path_param"
	CodeUnknownParam     = "unknown_path_param"
)

// Violation is a single structural defect in a document.
type Violation struct {
	Code string

	// Location is "<group>.<endpoint>" or a dotted path into the document.
	// Empty for document-root checks.
	Location string

	Problem string
}

// Error formats the violation as "<location>: <problem>", or just the problem
// for document-root checks.
func (v Violation) Error() string {
	if v.Location == "" {
		return v.Problem
	}
	return v.Location + ": " + v.Problem
}

// Messages returns the formatted violations in order.
func Messages(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Error()
	}
	return out
}

// Validate checks a parsed document against the OCP structural rules.
// It returns either a Model or a non-empty list of violations, never both.
// All checks run; violations are reported in a fixed order: marker checks,
// meta checks, protocol-specific checks, then type shape checks.
func Validate(root *Node) (*Model, []Violation) {
	v := &validator{}

	kind := v.checkMarker(root)
	v.checkMeta(root)
	if kind == ProtocolREST {
		v.checkREST(root)
	}

	model := v.build(root, kind)
	if len(v.violations) > 0 {
		return nil, v.violations
	}
	return model, nil
}

type validator struct {
	violations []Violation
}

func (v *validator) add(code, location, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Code:     code,
		Location: location,
		Problem:  fmt.Sprintf(format, args...),
	})
}

func (v *validator) checkMarker(root *Node) ProtocolKind {
	marker := root.Get("$ocp")
	if !marker.Truthy() {
		v.add(CodeMissingMarker, "", "Missing $ocp marker")
		return ""
	}

	typ := marker.Get("type")
	if !typ.Truthy() {
		v.add(CodeMissingType, "", "Missing $ocp.type")
	}
	if !marker.Get("version").Truthy() {
		v.add(CodeMissingVersion, "", "Missing $ocp.version")
	}
	if !typ.Truthy() {
		return ""
	}

	kind := ProtocolKind(typ.Scalar())
	if typ.Kind != NodeString || !kind.Valid() {
		v.add(CodeInvalidType, "", "Invalid $ocp.type: %s", typ.Scalar())
		return ""
	}
	return kind
}

func (v *validator) checkMeta(root *Node) {
	meta := root.Get("meta")
	if !meta.Truthy() {
		v.add(CodeMissingMeta, "", "Missing meta section")
		return
	}
	if !meta.Get("name").Truthy() {
		v.add(CodeMissingName, "", "Missing meta.name")
	}
	if !meta.Get("base_url").Truthy() {
		v.add(CodeMissingBaseURL, "", "Missing meta.base_url")
	}
}

func (v *validator) checkREST(root *Node) {
	endpoints := root.Get("endpoints")
	if !endpoints.Truthy() {
		v.add(CodeMissingEndpoints, "", "Missing endpoints section")
		return
	}
	if !endpoints.IsObject() {
		v.add(CodeInvalidEndpoints, "", "Invalid endpoints section")
		return
	}

	for _, group := range endpoints.Members {
		if isAnnotation(group.Key) || !group.Value.IsObject() {
			continue
		}
		for _, entry := range group.Value.Members {
			if isAnnotation(entry.Key) || !entry.Value.IsObject() {
				continue
			}
			loc := group.Key + "." + entry.Key
			method := entry.Value.Get("method")
			path := entry.Value.Get("path")
			if path.Truthy() && path.Kind != NodeString {
				v.add(CodeInvalidPath, loc, "Invalid path %s", path.Scalar())
			}
			if !method.Truthy() {
				continue
			}
			if !path.Truthy() {
				v.add(CodeMissingPath, loc, "Missing path")
			}
			if method.Kind != NodeString || !slices.Contains(HTTPMethods, method.Text) {
				v.add(CodeInvalidMethod, loc, "Invalid method %s", method.Scalar())
			}
		}
	}
}

// isAnnotation reports whether a member key is a "$"-prefixed annotation
// (e.g. "$comment") rather than a group or endpoint.
func isAnnotation(key string) bool {
	return strings.HasPrefix(key, "$")
}

func (v *validator) build(root *Node, kind ProtocolKind) *Model {
	m := &Model{Protocol: kind}
	if marker := root.Get("$ocp"); marker != nil {
		m.Version = marker.Get("version").Scalar()
	}
	m.Meta = buildMeta(root.Get("meta"))

	if types := root.Get("types"); types != nil {
		if !types.IsObject() {
			v.add(CodeInvalidShape, "types", "invalid type: expected an object of named types")
		} else {
			for _, member := range types.Members {
				if isAnnotation(member.Key) {
					continue
				}
				loc := "types." + member.Key
				ft := v.fieldType(member.Value, loc)
				if ft == nil {
					continue
				}
				if ft.Kind != TypeObject {
					v.add(CodeInvalidShape, loc, "invalid type: named types must be objects")
					continue
				}
				ft.Name = member.Key
				m.Types = append(m.Types, ft)
			}
		}
	}

	endpoints := root.Get("endpoints")
	if endpoints == nil {
		return m
	}
	if !endpoints.IsObject() {
		// REST already reported this in checkREST.
		if kind != ProtocolREST && endpoints.Truthy() {
			v.add(CodeInvalidEndpoints, "", "Invalid endpoints section")
		}
		return m
	}

	for _, member := range endpoints.Members {
		if isAnnotation(member.Key) {
			continue
		}
		if !member.Value.IsObject() {
			v.add(CodeInvalidGroup, member.Key, "invalid group: expected an object of endpoints")
			continue
		}
		m.Groups = append(m.Groups, v.buildGroup(kind, member.Key, member.Value))
	}
	return m
}

func buildMeta(n *Node) Meta {
	meta := Meta{
		Name:    n.Get("name").Scalar(),
		BaseURL: n.Get("base_url").Scalar(),
		Version: n.Get("version").Scalar(),
	}
	meta.Description, _ = n.Get("description").StringValue()

	switch auth := n.Get("auth"); {
	case auth == nil:
	case auth.Kind == NodeString && auth.Text != "":
		meta.Auth = &Auth{Type: auth.Text}
	case auth.IsObject():
		a := &Auth{}
		a.Type, _ = auth.Get("type").StringValue()
		a.Header, _ = auth.Get("header").StringValue()
		if a.Type != "" {
			meta.Auth = a
		}
	}
	return meta
}

func (v *validator) buildGroup(kind ProtocolKind, name string, n *Node) *Group {
	g := &Group{Name: name}
	for _, member := range n.Members {
		if isAnnotation(member.Key) {
			continue
		}
		if !member.Value.IsObject() {
			if s, ok := member.Value.StringValue(); ok && member.Key == "description" {
				g.Description = s
			}
			continue
		}
		// A REST entry with neither method nor path is an annotation.
		if kind == ProtocolREST && !member.Value.Get("method").Truthy() && !member.Value.Get("path").Truthy() {
			continue
		}
		g.Endpoints = append(g.Endpoints, v.buildEndpoint(kind, name, member.Key, member.Value))
	}
	return g
}

func (v *validator) buildEndpoint(kind ProtocolKind, group, name string, n *Node) *Endpoint {
	loc := group + "." + name
	ep := &Endpoint{
		Name:       name,
		Deprecated: n.Get("deprecated").BoolValue(false),
		Params:     v.fields(n.Get("params"), loc+".params", true),
		Query:      v.fields(n.Get("query"), loc+".query", false),
		Body:       v.fieldType(n.Get("body"), loc+".body"),
		Response:   v.fieldType(n.Get("response"), loc+".response"),
		Send:       v.fieldType(n.Get("send"), loc+".send"),
		Receive:    v.fieldType(n.Get("receive"), loc+".receive"),
	}
	ep.Description, _ = n.Get("description").StringValue()
	ep.Method, _ = n.Get("method").StringValue()
	ep.Path, _ = n.Get("path").StringValue()
	ep.Operation, _ = n.Get("operation").StringValue()
	ep.Channel, _ = n.Get("channel").StringValue()

	switch kind {
	case ProtocolREST:
		if ep.Method == "" {
			ep.Method = "GET"
		}
		ep.PathParams = v.pathParams(ep, loc)
	case ProtocolRPC:
		if ep.Method == "" {
			ep.Method = name
		}
	case ProtocolGraphQL:
		if ep.Method == "" {
			ep.Method = "query"
		}
		if ep.Operation == "" {
			ep.Operation = name
		}
	case ProtocolWebSocket:
		if ep.Channel == "" {
			ep.Channel = name
		}
	}
	return ep
}

// pathParams derives the path parameters of a REST endpoint from its path
// template. Declared params type the tokens; undeclared tokens are strings.
func (v *validator) pathParams(ep *Endpoint, loc string) []Field {
	tokens := PathTokens(ep.Path)
	seen := make(map[string]bool, len(tokens))
	var params []Field
	for _, tok := range tokens {
		if seen[tok] {
			v.add(CodeDuplicateParam, loc, "duplicate path parameter %q", tok)
			continue
		}
		seen[tok] = true

		field := Field{Name: tok, Type: Primitive("string"), Required: true}
		for _, p := range ep.Params {
			if p.Name == tok {
				field.Type = p.Type
			}
		}
		params = append(params, field)
	}
	for _, p := range ep.Params {
		if !seen[p.Name] {
			v.add(CodeUnknownParam, loc, "params.%s does not appear in path %q", p.Name, ep.Path)
		}
	}
	return params
}

// fields decodes an object of named types. Members are required unless they
// say otherwise, or defRequired is false.
func (v *validator) fields(n *Node, loc string, defRequired bool) []Field {
	if n == nil {
		return nil
	}
	if !n.IsObject() {
		v.add(CodeInvalidShape, loc, "invalid type: expected an object of named types")
		return nil
	}
	fields := make([]Field, 0, len(n.Members))
	for _, member := range n.Members {
		ft := v.fieldType(member.Value, loc+"."+member.Key)
		if ft == nil {
			continue
		}
		required := defRequired
		if r := member.Value.Get("required"); r != nil && r.Kind == NodeBool {
			required = r.Bool
		}
		fields = append(fields, Field{Name: member.Key, Type: ft, Required: required})
	}
	return fields
}

func (v *validator) fieldType(n *Node, loc string) *FieldType {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeString:
		if n.Text == "" {
			v.add(CodeInvalidShape, loc, "invalid type: empty type tag")
			return nil
		}
		return Primitive(n.Text)

	case NodeArray:
		if len(n.Items) != 1 {
			v.add(CodeInvalidShape, loc, "invalid type: array shorthand takes exactly one element type")
			return nil
		}
		elem := v.fieldType(n.Items[0], loc+"[]")
		if elem == nil {
			return nil
		}
		return ArrayOf(elem)

	case NodeObject:
		ft := v.objectForm(n, loc)
		if ft == nil {
			return nil
		}
		ft.Nullable = n.Get("nullable").BoolValue(false)
		ft.Description, _ = n.Get("description").StringValue()
		ft.Default = n.Get("default")
		if enum := n.Get("enum"); enum != nil {
			if enum.Kind != NodeArray || len(enum.Items) == 0 {
				v.add(CodeInvalidShape, loc, "invalid type: enum must be a non-empty array")
			} else {
				ft.Enum = enum.Items
			}
		}
		return ft

	default:
		v.add(CodeInvalidShape, loc, "invalid type: expected a string, array or object, got %s", n.Kind)
		return nil
	}
}

func (v *validator) objectForm(n *Node, loc string) *FieldType {
	if ref := n.Get("$ref"); ref != nil {
		name, ok := ref.StringValue()
		if !ok || name == "" {
			v.add(CodeInvalidShape, loc, "invalid type: $ref must name a type")
			return nil
		}
		return Ref(name)
	}

	tag, hasTag := n.Get("type").StringValue()
	switch {
	case tag == "array" || (!hasTag && n.Get("items") != nil):
		items := n.Get("items")
		if items == nil {
			v.add(CodeInvalidShape, loc, "invalid type: array without items")
			return nil
		}
		elem := v.fieldType(items, loc+"[]")
		if elem == nil {
			return nil
		}
		return ArrayOf(elem)

	case tag == "object" || (!hasTag && n.Get("properties") != nil):
		ft := &FieldType{Kind: TypeObject}
		ft.Name, _ = n.Get("name").StringValue()
		ft.Properties = v.fields(n.Get("properties"), loc, true)
		if req := n.Get("required"); req != nil && req.Kind == NodeArray {
			for i := range ft.Properties {
				ft.Properties[i].Required = slices.ContainsFunc(req.Items, func(item *Node) bool {
					return item.Kind == NodeString && item.Text == ft.Properties[i].Name
				})
			}
		}
		return ft

	case hasTag && tag != "":
		return Primitive(tag)

	default:
		v.add(CodeInvalidShape, loc, "invalid type: missing type")
		return nil
	}
}
