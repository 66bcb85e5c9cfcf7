package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, doc string) *Node {
	t.Helper()
	n, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return n
}

func findEndpoint(m *Model, group, name string) *Endpoint {
	for _, g := range m.Groups {
		if g.Name != group {
			continue
		}
		for _, ep := range g.Endpoints {
			if ep.Name == name {
				return ep
			}
		}
	}
	return nil
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "empty document",
			doc:  `{}`,
			want: []string{"Missing $ocp marker", "Missing meta section"},
		},
		{
			name: "missing marker and meta fields",
			doc:  `{"$ocp": {}, "meta": {}}`,
			want: []string{
				"Missing $ocp.type",
				"Missing $ocp.version",
				"Missing meta.name",
				"Missing meta.base_url",
			},
		},
		{
			name: "empty strings count as missing",
			doc:  `{"$ocp": {"type": "", "version": ""}, "meta": {"name": "", "base_url": ""}}`,
			want: []string{
				"Missing $ocp.type",
				"Missing $ocp.version",
				"Missing meta.name",
				"Missing meta.base_url",
			},
		},
		{
			name: "invalid protocol kind",
			doc:  `{"$ocp": {"type": "soap", "version": "1.0"}, "meta": {"name": "x", "base_url": "http://x"}}`,
			want: []string{"Invalid $ocp.type: soap"},
		},
		{
			name: "invalid kind reported after missing version",
			doc:  `{"$ocp": {"type": "grpc"}, "meta": {"name": "x", "base_url": "http://x"}}`,
			want: []string{"Missing $ocp.version", "Invalid $ocp.type: grpc"},
		},
		{
			name: "rest without endpoints",
			doc:  `{"$ocp": {"type": "rest", "version": "1.0"}, "meta": {"name": "x", "base_url": "http://x"}}`,
			want: []string{"Missing endpoints section"},
		},
		{
			name: "rest with non-object endpoints",
			doc:  `{"$ocp": {"type": "rest", "version": "1.0"}, "meta": {"name": "x", "base_url": "http://x"}, "endpoints": [1]}`,
			want: []string{"Invalid endpoints section"},
		},
		{
			name: "invalid verb and missing path",
			doc: `{
				"$ocp": {"type": "rest", "version": "1.0"},
				"meta": {"name": "x", "base_url": "http://x"},
				"endpoints": {
					"users": {
						"trace": {"method": "TRACE", "path": "/users"},
						"create": {"method": "POST"}
					}
				}
			}`,
			want: []string{
				"users.trace: Invalid method TRACE",
				"users.create: Missing path",
			},
		},
		{
			name: "missing path and invalid verb on same endpoint",
			doc: `{
				"$ocp": {"type": "rest", "version": "1.0"},
				"meta": {"name": "x", "base_url": "http://x"},
				"endpoints": {"users": {"get": {"method": "get"}}}
			}`,
			want: []string{
				"users.get: Missing path",
				"users.get: Invalid method get",
			},
		},
		{
			name: "non-string path",
			doc: `{
				"$ocp": {"type": "rest", "version": "1.0"},
				"meta": {"name": "x", "base_url": "http://x"},
				"endpoints": {"users": {"get": {"method": "GET", "path": 5}, "list": {"path": ["/users"]}}}
			}`,
			want: []string{
				"users.get: Invalid path 5",
				"users.list: Invalid path array",
			},
		},
		{
			name: "marker checks precede meta and protocol checks",
			doc: `{
				"$ocp": {"type": "rest"},
				"meta": {"base_url": "http://x"},
				"endpoints": {"users": {"get": {"method": "FETCH", "path": "/u"}}}
			}`,
			want: []string{
				"Missing $ocp.version",
				"Missing meta.name",
				"users.get: Invalid method FETCH",
			},
		},
		{
			name: "bad type shapes",
			doc: `{
				"$ocp": {"type": "rpc", "version": "1"},
				"meta": {"name": "x", "base_url": "http://x"},
				"types": {"User": "string"},
				"endpoints": {
					"users": {
						"get": {"params": {"id": 5}, "response": ["string", "number"]}
					}
				}
			}`,
			want: []string{
				"types.User: invalid type: named types must be objects",
				"users.get.params.id: invalid type: expected a string, array or object, got number",
				"users.get.response: invalid type: array shorthand takes exactly one element type",
			},
		},
		{
			name: "unknown and duplicate path params",
			doc: `{
				"$ocp": {"type": "rest", "version": "1"},
				"meta": {"name": "x", "base_url": "http://x"},
				"endpoints": {
					"users": {
						"get": {"method": "GET", "path": "/u/{id}/{id}", "params": {"slug": "string"}}
					}
				}
			}`,
			want: []string{
				`users.get: duplicate path parameter "id"`,
				`users.get: params.slug does not appear in path "/u/{id}/{id}"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, violations := Validate(mustParse(t, tt.doc))
			if model != nil {
				t.Errorf("Validate() returned a model alongside violations")
			}
			if diff := cmp.Diff(tt.want, Messages(violations)); diff != "" {
				t.Errorf("Validate() violations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_AnnotationsSkipped(t *testing.T) {
	doc := `{
		"$ocp": {"type": "rest", "version": "1.0"},
		"meta": {"name": "x", "base_url": "http://x"},
		"endpoints": {
			"$comment": "ignored",
			"users": {
				"description": "User management",
				"notes": {"summary": "neither method nor path"},
				"get": {"method": "GET", "path": "/users/{id}"}
			}
		}
	}`
	model, violations := Validate(mustParse(t, doc))
	if len(violations) > 0 {
		t.Fatalf("Validate() violations = %v", Messages(violations))
	}
	if len(model.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(model.Groups))
	}
	g := model.Groups[0]
	if g.Description != "User management" {
		t.Errorf("group description = %q", g.Description)
	}
	if len(g.Endpoints) != 1 || g.Endpoints[0].Name != "get" {
		t.Errorf("endpoints = %+v, want only get", g.Endpoints)
	}
}

func TestValidate_PreservesDeclarationOrder(t *testing.T) {
	doc := `{
		"$ocp": {"type": "rest", "version": "1.0"},
		"meta": {"name": "x", "base_url": "http://x"},
		"endpoints": {
			"zebra": {"z": {"method": "GET", "path": "/z"}, "a": {"method": "GET", "path": "/a"}},
			"alpha": {"m": {"method": "GET", "path": "/m"}}
		}
	}`
	model, violations := Validate(mustParse(t, doc))
	if len(violations) > 0 {
		t.Fatalf("Validate() violations = %v", Messages(violations))
	}

	var got []string
	for _, g := range model.Groups {
		for _, e := range g.Endpoints {
			got = append(got, g.Name+"."+e.Name)
		}
	}
	want := []string{"zebra.z", "zebra.a", "alpha.m"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_RESTEndpoint(t *testing.T) {
	doc := `{
		"$ocp": {"type": "rest", "version": "1.0"},
		"meta": {"name": "Pets", "base_url": "https://api.example.com", "auth": "bearer"},
		"endpoints": {
			"users": {
				"get": {
					"method": "GET",
					"path": "/users/{id}/posts/{postId}",
					"params": {"postId": "number"},
					"query": {"limit": {"type": "number", "default": 10}, "q": {"type": "string", "required": true}},
					"response": {"$ref": "User"}
				},
				"list": {"path": "/users"}
			}
		}
	}`
	model, violations := Validate(mustParse(t, doc))
	if len(violations) > 0 {
		t.Fatalf("Validate() violations = %v", Messages(violations))
	}
	if model.Protocol != ProtocolREST || model.Version != "1.0" {
		t.Errorf("marker = %q/%q", model.Protocol, model.Version)
	}
	if model.Meta.Auth == nil || model.Meta.Auth.Type != "bearer" {
		t.Errorf("auth = %+v, want bearer", model.Meta.Auth)
	}

	get := findEndpoint(model, "users", "get")
	if len(get.PathParams) != 2 {
		t.Fatalf("path params = %+v", get.PathParams)
	}
	if get.PathParams[0].Name != "id" || get.PathParams[0].Type.Tag != "string" {
		t.Errorf("path param 0 = %+v", get.PathParams[0])
	}
	if get.PathParams[1].Name != "postId" || get.PathParams[1].Type.Tag != "number" {
		t.Errorf("path param 1 = %+v", get.PathParams[1])
	}
	if len(get.Query) != 2 || get.Query[0].Required || !get.Query[1].Required {
		t.Errorf("query = %+v", get.Query)
	}
	if get.Query[0].Type.Default == nil || get.Query[0].Type.Default.Text != "10" {
		t.Errorf("query default = %+v", get.Query[0].Type.Default)
	}
	if get.Response.Kind != TypeRef || get.Response.Name != "User" {
		t.Errorf("response = %+v", get.Response)
	}

	list := findEndpoint(model, "users", "list")
	if list == nil || list.Method != "GET" {
		t.Errorf("path-only endpoint should default to GET, got %+v", list)
	}
}

func TestValidate_ProtocolDefaults(t *testing.T) {
	tests := []struct {
		kind  string
		check func(*Endpoint) bool
	}{
		{"rpc", func(e *Endpoint) bool { return e.Method == "get" }},
		{"graphql", func(e *Endpoint) bool { return e.Method == "query" && e.Operation == "get" }},
		{"websocket", func(e *Endpoint) bool { return e.Channel == "get" }},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			doc := `{"$ocp": {"type": "` + tt.kind + `", "version": 1},
				"meta": {"name": "x", "base_url": "http://x"},
				"endpoints": {"users": {"get": {}}}}`
			model, violations := Validate(mustParse(t, doc))
			if len(violations) > 0 {
				t.Fatalf("Validate() violations = %v", Messages(violations))
			}
			if model.Version != "1" {
				t.Errorf("numeric version = %q, want 1", model.Version)
			}
			ep := model.Groups[0].Endpoints[0]
			if !tt.check(ep) {
				t.Errorf("unexpected defaults: %+v", ep)
			}
		})
	}
}

func TestValidate_FieldTypeForms(t *testing.T) {
	doc := `{
		"$ocp": {"type": "rpc", "version": "1"},
		"meta": {"name": "x", "base_url": "http://x"},
		"types": {
			"User": {
				"properties": {
					"id": "string",
					"tags": ["string"],
					"role": {"type": "string", "enum": ["admin", "member"]},
					"manager": {"$ref": "User", "nullable": true},
					"address": {"type": "object", "properties": {"city": "string"}, "required": []}
				},
				"required": ["id", "tags"]
			}
		}
	}`
	model, violations := Validate(mustParse(t, doc))
	if len(violations) > 0 {
		t.Fatalf("Validate() violations = %v", Messages(violations))
	}
	user := model.Types[0]
	if user.Kind != TypeObject || user.Name != "User" {
		t.Fatalf("User = %+v", user)
	}

	var got []string
	for _, p := range user.Properties {
		got = append(got, p.Name+":"+p.Type.Kind.String()+":"+map[bool]string{true: "req", false: "opt"}[p.Required])
	}
	want := []string{
		"id:primitive:req",
		"tags:array:req",
		"role:primitive:opt",
		"manager:ref:opt",
		"address:object:opt",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	if len(user.Properties[2].Type.Enum) != 2 {
		t.Errorf("enum = %v", user.Properties[2].Type.Enum)
	}
	if !user.Properties[3].Type.Nullable {
		t.Errorf("manager should be nullable")
	}
}

func TestPathTokens(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/users", nil},
		{"/users/{id}", []string{"id"}},
		{"/orgs/{org}/repos/{repo-name}", []string{"org", "repo-name"}},
		{"/files/{path}.json", []string{"path"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, PathTokens(tt.path)); diff != "" {
				t.Errorf("PathTokens(%q) mismatch (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	got := SplitPath("/users/{id}/posts/{postId}.json")
	want := []PathSegment{
		{Literal: "/users/"},
		{Param: "id"},
		{Literal: "/posts/"},
		{Param: "postId"},
		{Literal: ".json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitPath() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		_, err := Parse([]byte(`{"a": `))
		if err == nil {
			t.Fatal("Parse() should fail on truncated input")
		}
		var perr *ParseError
		if !strings.Contains(err.Error(), "malformed schema document") {
			t.Errorf("error = %v", err)
		}
		if pe, ok := err.(*ParseError); !ok || pe.Unwrap() == nil {
			t.Errorf("error type = %T, want %T", err, perr)
		}
	})

	t.Run("escapes and order", func(t *testing.T) {
		n, err := Parse([]byte(`{"b!": "x\ny", "a": [1, true, null], "b!": "again"}`))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if len(n.Members) != 2 || n.Members[0].Key != "b!" || n.Members[1].Key != "a" {
			t.Fatalf("members = %+v", n.Members)
		}
		if s, _ := n.Get("b!").StringValue(); s != "again" {
			t.Errorf("duplicate key should keep last value, got %q", s)
		}
		items := n.Get("a").Items
		if len(items) != 3 || items[0].Text != "1" || !items[1].Bool || items[2].Kind != NodeNull {
			t.Errorf("items = %+v", items)
		}
	})
}
