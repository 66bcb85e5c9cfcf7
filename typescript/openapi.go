package typescript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// openAPIFile describes a REST model as an OpenAPI 3.0 document. Named objects
// become component schemas and each endpoint becomes one operation. Only the
// first endpoint declaring a method and path is kept.
func openAPIFile(cfg Config, m *schema.Model, tm *TypeMapper) (sink.Artifact, error) {
	doc, err := openAPIDocument(m, tm)
	if err != nil {
		return sink.Artifact{}, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return sink.Artifact{}, fmt.Errorf("encode openapi.json: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", cfg.indent()); err != nil {
		return sink.Artifact{}, fmt.Errorf("encode openapi.json: %w", err)
	}
	buf.WriteByte('\n')
	return sink.Artifact{Path: "openapi.json", Content: buf.Bytes()}, nil
}

func openAPIDocument(m *schema.Model, tm *TypeMapper) (*openapi3.T, error) {
	version := m.Meta.Version
	if version == "" {
		version = "0.1.0"
	}
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       m.Meta.Name,
			Description: m.Meta.Description,
			Version:     version,
		},
		Servers:    openapi3.Servers{&openapi3.Server{URL: m.Meta.BaseURL}},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	for _, def := range tm.Definitions() {
		s, err := objectSchema(def, tm, "types."+def.Name)
		if err != nil {
			return nil, err
		}
		doc.Components.Schemas[typeName(def.Name)] = openapi3.NewSchemaRef("", s)
	}

	if auth := m.Meta.Auth; auth != nil {
		scheme := securityScheme(auth)
		doc.Components.SecuritySchemes = openapi3.SecuritySchemes{
			"default": &openapi3.SecuritySchemeRef{Value: scheme},
		}
		doc.Security = openapi3.SecurityRequirements{openapi3.NewSecurityRequirement().Authenticate("default")}
	}

	for _, g := range m.Groups {
		for _, ep := range g.Endpoints {
			op, err := openAPIOperation(g, ep, tm)
			if err != nil {
				return nil, err
			}
			item := doc.Paths.Value(ep.Path)
			if item == nil {
				item = &openapi3.PathItem{}
				doc.Paths.Set(ep.Path, item)
			}
			if item.GetOperation(ep.Method) != nil {
				tm.warn(g.Name+"."+ep.Name, "%s %s is declared more than once; omitted from openapi.json", ep.Method, ep.Path)
				continue
			}
			item.SetOperation(ep.Method, op)
		}
	}
	return doc, nil
}

func securityScheme(auth *schema.Auth) *openapi3.SecurityScheme {
	switch auth.Type {
	case "api_key":
		return openapi3.NewSecurityScheme().WithType("apiKey").WithIn("header").WithName(apiKeyHeader(auth))
	case "basic":
		return openapi3.NewSecurityScheme().WithType("http").WithScheme("basic")
	default:
		return openapi3.NewJWTSecurityScheme()
	}
}

func openAPIOperation(g *schema.Group, ep *schema.Endpoint, tm *TypeMapper) (*openapi3.Operation, error) {
	loc := g.Name + "." + ep.Name
	op := &openapi3.Operation{
		OperationID: g.Name + "." + ep.Name,
		Tags:        []string{g.Name},
		Description: ep.Description,
		Deprecated:  ep.Deprecated,
	}

	for _, p := range ep.PathParams {
		s, err := fieldSchema(p.Type, tm, loc+".path."+p.Name)
		if err != nil {
			return nil, err
		}
		param := openapi3.NewPathParameter(p.Name)
		param.Schema = s
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}
	for _, q := range ep.Query {
		s, err := fieldSchema(q.Type, tm, loc+".query."+q.Name)
		if err != nil {
			return nil, err
		}
		param := openapi3.NewQueryParameter(q.Name).WithRequired(q.Required)
		param.Schema = s
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}

	if ep.Body != nil {
		s, err := fieldSchema(ep.Body, tm, loc+".body")
		if err != nil {
			return nil, err
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(s),
		}
	}

	resp := openapi3.NewResponse().WithDescription("Successful response")
	if ep.Response != nil {
		s, err := fieldSchema(ep.Response, tm, loc+".response")
		if err != nil {
			return nil, err
		}
		resp = resp.WithJSONSchemaRef(s)
	}
	op.Responses = openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{Value: resp}))
	return op, nil
}

// fieldSchema converts a FieldType into an OpenAPI schema reference. Named
// objects are referenced through components.
func fieldSchema(t *schema.FieldType, tm *TypeMapper, loc string) (*openapi3.SchemaRef, error) {
	var s *openapi3.Schema
	switch t.Kind {
	case schema.TypeRef, schema.TypeObject:
		name := t.Name
		if t.Kind == schema.TypeRef && tm.Lookup(name) == nil {
			return nil, generationErrorf(loc, "unresolved type reference %q", name)
		}
		if name != "" {
			ref := openapi3.NewSchemaRef("#/components/schemas/"+typeName(name), nil)
			if !t.Nullable {
				return ref, nil
			}
			// A $ref cannot carry siblings in OpenAPI 3.0; wrap it to mark it nullable.
			s = &openapi3.Schema{AllOf: openapi3.SchemaRefs{ref}, Nullable: true}
			return openapi3.NewSchemaRef("", s), nil
		}
		var err error
		s, err = objectSchema(t, tm, loc)
		if err != nil {
			return nil, err
		}

	case schema.TypeArray:
		items, err := fieldSchema(t.Elem, tm, loc+"[]")
		if err != nil {
			return nil, err
		}
		s = openapi3.NewArraySchema()
		s.Items = items

	case schema.TypePrimitive:
		switch t.Tag {
		case "string":
			s = openapi3.NewStringSchema()
		case "number":
			s = openapi3.NewFloat64Schema()
		case "integer":
			s = openapi3.NewIntegerSchema()
		case "boolean":
			s = openapi3.NewBoolSchema()
		case "any":
			s = &openapi3.Schema{}
		default:
			return nil, generationErrorf(loc, "unsupported type %q", t.Tag)
		}
		for _, e := range t.Enum {
			s.Enum = append(s.Enum, nodeValue(e))
		}

	default:
		return nil, generationErrorf(loc, "unsupported type kind %s", t.Kind)
	}

	s.Nullable = t.Nullable
	s.Description = t.Description
	if t.Default != nil {
		s.Default = nodeValue(t.Default)
	}
	return openapi3.NewSchemaRef("", s), nil
}

func objectSchema(t *schema.FieldType, tm *TypeMapper, loc string) (*openapi3.Schema, error) {
	s := openapi3.NewObjectSchema()
	s.Description = t.Description
	for _, p := range t.Properties {
		ps, err := fieldSchema(p.Type, tm, loc+"."+p.Name)
		if err != nil {
			return nil, err
		}
		if s.Properties == nil {
			s.Properties = openapi3.Schemas{}
		}
		s.Properties[p.Name] = ps
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s, nil
}

// nodeValue converts a document literal into the value encoding/json would produce.
func nodeValue(n *schema.Node) any {
	switch n.Kind {
	case schema.NodeString:
		return n.Text
	case schema.NodeNumber:
		if i, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(n.Text, 64)
		return f
	case schema.NodeBool:
		return n.Bool
	case schema.NodeArray:
		items := make([]any, len(n.Items))
		for i, item := range n.Items {
			items[i] = nodeValue(item)
		}
		return items
	case schema.NodeObject:
		obj := make(map[string]any, len(n.Members))
		for _, m := range n.Members {
			obj[m.Key] = nodeValue(m.Value)
		}
		return obj
	default:
		return nil
	}
}
