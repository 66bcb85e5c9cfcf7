package typescript

import (
	"regexp"
	"slices"
	"strings"

	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// GraphQLEmitter generates typed wrappers around GraphQL documents.
type GraphQLEmitter struct {
	cfg Config
}

func (e *GraphQLEmitter) Protocol() schema.ProtocolKind { return schema.ProtocolGraphQL }

func (e *GraphQLEmitter) Emit(m *schema.Model, tm *TypeMapper) ([]sink.Artifact, error) {
	return assemble(e.cfg, m, tm, e)
}

func (e *GraphQLEmitter) summary(ep *schema.Endpoint) string {
	return ep.Method + " " + ep.Operation
}

var graphQLName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// writeEndpoint renders the operation document as a module constant and a
// method that executes it and unwraps the root field.
func (e *GraphQLEmitter) writeEndpoint(pre, w *codeWriter, g *schema.Group, ep *schema.Endpoint, tm *TypeMapper, imp *imports) error {
	loc := g.Name + "." + ep.Name
	if ep.Method != "query" && ep.Method != "mutation" {
		return generationErrorf(loc, "unsupported GraphQL operation type %q", ep.Method)
	}
	if !graphQLName.MatchString(ep.Operation) {
		return generationErrorf(loc, "invalid GraphQL field name %q", ep.Operation)
	}

	document, err := graphQLDocument(ep, tm, loc)
	if err != nil {
		return err
	}
	constName := toConstantCase(g.Name) + "_" + toConstantCase(ep.Name) + "_DOCUMENT"
	pre.line("const " + constName + " = `" + templateText(document) + "`;")

	sig := newSignature("options")
	vars := "{}"
	if len(ep.Params) > 0 {
		pe, required, err := objectType(ep.Params, tm, loc+".params")
		if err != nil {
			return err
		}
		imp.useTypes(pe.Refs...)
		vars = sig.add("variables", pe.Text, !required)
		if !required {
			vars += " ?? {}"
		}
	}
	imp.useClient("RequestOptions")
	sig.reserved("options?: RequestOptions")

	result := "unknown"
	if ep.Response != nil {
		re, err := tm.MapType(ep.Response, Context{Location: loc + ".response"})
		if err != nil {
			return err
		}
		imp.useTypes(re.Refs...)
		result = re.Text
	}

	w.doc(ep.Description, ep.Deprecated)
	w.open("async " + memberName(ep.Name) + "(" + sig.String() + "): Promise<" + result + "> {")
	w.line("const data = await this.#client.execute<{ " + ep.Operation + ": " + result + " }>(" +
		constName + ", " + vars + ", options);")
	w.line("return data." + ep.Operation + ";")
	w.close("}")
	return nil
}

// graphQLDocument builds the operation text: variable definitions from the
// params and a selection set covering the response shape.
func graphQLDocument(ep *schema.Endpoint, tm *TypeMapper, loc string) (string, error) {
	var defs, args []string
	for _, p := range ep.Params {
		if !graphQLName.MatchString(p.Name) {
			return "", generationErrorf(loc+".params."+p.Name, "invalid GraphQL variable name %q", p.Name)
		}
		t, err := graphQLType(p.Type, p.Required, tm, loc+".params."+p.Name)
		if err != nil {
			return "", err
		}
		defs = append(defs, "$"+p.Name+": "+t)
		args = append(args, p.Name+": $"+p.Name)
	}

	var b strings.Builder
	b.WriteString(ep.Method + " " + typeName(ep.Name))
	if len(defs) > 0 {
		b.WriteString("(" + strings.Join(defs, ", ") + ")")
	}
	b.WriteString(" {\n  " + ep.Operation)
	if len(args) > 0 {
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	if err := selectionSet(&b, ep.Response, tm, 1, nil, loc+".response"); err != nil {
		return "", err
	}
	b.WriteString("\n}")
	return b.String(), nil
}

var graphQLScalars = map[string]string{
	"string":  "String",
	"number":  "Float",
	"integer": "Int",
	"boolean": "Boolean",
}

// graphQLType renders the variable type of an argument.
func graphQLType(t *schema.FieldType, required bool, tm *TypeMapper, loc string) (string, error) {
	var base string
	switch t.Kind {
	case schema.TypePrimitive:
		s, ok := graphQLScalars[t.Tag]
		if !ok {
			return "", generationErrorf(loc, "type %q has no GraphQL input equivalent", t.Tag)
		}
		base = s
	case schema.TypeArray:
		elem, err := graphQLType(t.Elem, true, tm, loc+"[]")
		if err != nil {
			return "", err
		}
		base = "[" + elem + "]"
	case schema.TypeRef:
		if tm.Lookup(t.Name) == nil {
			return "", generationErrorf(loc, "unresolved type reference %q", t.Name)
		}
		base = typeName(t.Name)
	case schema.TypeObject:
		if t.Name == "" {
			return "", generationErrorf(loc, "object arguments need a named type")
		}
		base = typeName(t.Name)
	}
	if required && !t.Nullable {
		base += "!"
	}
	return base, nil
}

// selectionSet writes the fields selected from t, if it is an object. Named
// types already on the path are not expanded again. Property names must be
// valid GraphQL field names.
func selectionSet(b *strings.Builder, t *schema.FieldType, tm *TypeMapper, depth int, path []string, loc string) error {
	t = tm.Resolve(t)
	for t != nil && t.Kind == schema.TypeArray {
		t = tm.Resolve(t.Elem)
	}
	if t == nil || t.Kind != schema.TypeObject {
		return nil
	}
	if t.Name != "" {
		loc = "types." + t.Name
	}
	if t.Name != "" {
		path = append(slices.Clone(path), t.Name)
	}

	indent := strings.Repeat("  ", depth+1)
	b.WriteString(" {")
	wrote := false
	for _, p := range t.Properties {
		if named := namedTarget(p.Type, tm); named != "" && slices.Contains(path, named) {
			continue
		}
		if !graphQLName.MatchString(p.Name) {
			return generationErrorf(loc+"."+p.Name, "invalid GraphQL field name %q", p.Name)
		}
		b.WriteString("\n" + indent + p.Name)
		if err := selectionSet(b, p.Type, tm, depth+1, path, loc+"."+p.Name); err != nil {
			return err
		}
		wrote = true
	}
	if !wrote {
		b.WriteString("\n" + indent + "__typename")
	}
	b.WriteString("\n" + strings.Repeat("  ", depth) + "}")
	return nil
}

// namedTarget returns the named object t refers to, looking through arrays.
func namedTarget(t *schema.FieldType, tm *TypeMapper) string {
	for t != nil && t.Kind == schema.TypeArray {
		t = t.Elem
	}
	t = tm.Resolve(t)
	if t != nil && t.Kind == schema.TypeObject {
		return t.Name
	}
	return ""
}

func (e *GraphQLEmitter) writeClient(w *codeWriter, m *schema.Model) error {
	writeBaseURL(w, m)
	w.line("")
	writeClientConfig(w, m.Meta.Auth, httpTransportFields)
	w.line("")
	w.snippet(requestOptionsTS)
	w.line("")
	w.snippet(graphQLSupportTS)
	w.line("")
	w.open("export class BaseClient {")
	w.snippet(graphQLClientTS)
	w.line("")
	writeAuthHeaders(w, m.Meta.Auth)
	w.close("}")
	return nil
}

const graphQLSupportTS = `
export interface GraphQLErrorEntry {
  message: string;
  path?: Array<string | number>;
}

export class GraphQLError extends Error {
  constructor(readonly errors: GraphQLErrorEntry[]) {
    super(errors.map((e) => e.message).join('; '));
    this.name = 'GraphQLError';
  }
}

interface GraphQLReply<T> {
  data?: T;
  errors?: GraphQLErrorEntry[];
}
`

const graphQLClientTS = `
private readonly baseUrl: string;
private readonly fetchImpl: typeof fetch;

constructor(private readonly config: ClientConfig = {}) {
  this.baseUrl = config.baseUrl ?? BASE_URL;
  this.fetchImpl = config.fetch ?? globalThis.fetch.bind(globalThis);
}

async execute<T>(document: string, variables: Record<string, unknown>, options?: RequestOptions): Promise<T> {
  const response = await this.fetchImpl(this.baseUrl, {
    method: 'POST',
    headers: {
      Accept: 'application/json',
      'Content-Type': 'application/json',
      ...this.config.headers,
      ...this.authHeaders(),
      ...options?.headers,
    },
    body: JSON.stringify({ query: document, variables }),
    signal: options?.signal,
  });
  if (!response.ok) {
    throw new GraphQLError([{ message: ` + "`HTTP ${response.status}`" + ` }]);
  }
  const reply = (await response.json()) as GraphQLReply<T>;
  if (reply.errors && reply.errors.length > 0) {
    throw new GraphQLError(reply.errors);
  }
  return reply.data as T;
}
`
