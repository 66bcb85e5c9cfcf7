package typescript

import (
	"strings"

	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// RestEmitter generates fetch-based clients for REST APIs.
type RestEmitter struct {
	cfg Config
}

func (e *RestEmitter) Protocol() schema.ProtocolKind { return schema.ProtocolREST }

// Emit renders the group classes, the support files and, when enabled, an
// OpenAPI description of the same endpoints.
func (e *RestEmitter) Emit(m *schema.Model, tm *TypeMapper) ([]sink.Artifact, error) {
	artifacts, err := assemble(e.cfg, m, tm, e)
	if err != nil {
		return nil, err
	}
	if e.cfg.EmitOpenAPI {
		doc, err := openAPIFile(e.cfg, m, tm)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, doc)
	}
	return artifacts, nil
}

func (e *RestEmitter) summary(ep *schema.Endpoint) string {
	return ep.Method + " " + ep.Path
}

// writeEndpoint renders one async method. Parameters are the path parameters
// in path order, then body, then query, then per-call options.
func (e *RestEmitter) writeEndpoint(_, w *codeWriter, g *schema.Group, ep *schema.Endpoint, tm *TypeMapper, imp *imports) error {
	loc := g.Name + "." + ep.Name
	sig := newSignature("options")

	idents := make(map[string]string, len(ep.PathParams))
	for _, p := range ep.PathParams {
		pe, err := tm.MapType(p.Type, Context{Location: loc + ".path." + p.Name})
		if err != nil {
			return err
		}
		imp.useTypes(pe.Refs...)
		idents[p.Name] = sig.add(localName(p.Name), pe.Text, false)
	}

	var members []string
	if ep.Body != nil {
		be, err := tm.MapType(ep.Body, Context{Location: loc + ".body"})
		if err != nil {
			return err
		}
		imp.useTypes(be.Refs...)
		members = append(members, shorthand("body", sig.add("body", be.Text, false)))
	}

	var defaults []string
	if len(ep.Query) > 0 {
		qe, required, err := objectType(ep.Query, tm, loc+".query")
		if err != nil {
			return err
		}
		imp.useTypes(qe.Refs...)
		query := sig.add("query", qe.Text, !required)
		for _, q := range ep.Query {
			if q.Type.Default == nil {
				continue
			}
			v, err := tm.MapDefault(q.Type)
			if err != nil {
				return generationErrorf(loc+".query."+q.Name, "%s", err.Error())
			}
			defaults = append(defaults, tm.PropertyKey(q.Name)+": "+v)
		}
		if len(defaults) > 0 {
			search := sig.scope.claim("search")
			defaults = append(defaults, "..."+query)
			members = append(members, "query: "+search)
			defaults = []string{"const " + search + " = { " + strings.Join(defaults, ", ") + " };"}
		} else {
			members = append(members, shorthand("query", query))
		}
	}

	imp.useClient("RequestOptions")
	sig.reserved("options?: RequestOptions")
	members = append(members, "options")

	re, err := tm.MapType(ep.Response, Context{Location: loc + ".response"})
	if err != nil {
		return err
	}
	imp.useTypes(re.Refs...)

	w.doc(ep.Description, ep.Deprecated)
	w.open("async " + memberName(ep.Name) + "(" + sig.String() + "): Promise<" + re.Text + "> {")
	for _, d := range defaults {
		w.line(d)
	}
	w.line("return this.#client.request<" + re.Text + ">(" + w.str(ep.Method) + ", " +
		pathExpr(w, ep.Path, idents) + ", { " + strings.Join(members, ", ") + " });")
	w.close("}")
	return nil
}

// pathExpr renders the request path, substituting each {name} token with its
// URI-encoded parameter.
func pathExpr(w *codeWriter, path string, idents map[string]string) string {
	if len(idents) == 0 {
		return w.str(path)
	}
	var b strings.Builder
	b.WriteByte('`')
	for _, seg := range schema.SplitPath(path) {
		if seg.Param == "" {
			b.WriteString(templateText(seg.Literal))
			continue
		}
		b.WriteString("${encodeURIComponent(String(" + idents[seg.Param] + "))}")
	}
	b.WriteByte('`')
	return b.String()
}

func (e *RestEmitter) writeClient(w *codeWriter, m *schema.Model) error {
	writeBaseURL(w, m)
	w.line("")
	writeClientConfig(w, m.Meta.Auth, httpTransportFields)
	w.line("")
	w.snippet(requestOptionsTS)
	w.line("")
	w.snippet(restSupportTS)
	w.line("")
	w.open("export class BaseClient {")
	w.snippet(restClientTS)
	w.line("")
	writeAuthHeaders(w, m.Meta.Auth)
	w.close("}")
	return nil
}

const restSupportTS = `
export interface CallInit {
  body?: unknown;
  query?: Record<string, unknown>;
  options?: RequestOptions;
}

export class ApiError extends Error {
  constructor(
    readonly status: number,
    readonly body: unknown,
  ) {
    super(` + "`Request failed with status ${status}`" + `);
    this.name = 'ApiError';
  }
}
`

const restClientTS = `
private readonly baseUrl: string;
private readonly fetchImpl: typeof fetch;

constructor(private readonly config: ClientConfig = {}) {
  this.baseUrl = (config.baseUrl ?? BASE_URL).replace(/\/+$/, '');
  this.fetchImpl = config.fetch ?? globalThis.fetch.bind(globalThis);
}

async request<T>(method: string, path: string, init: CallInit = {}): Promise<T> {
  const url = new URL(this.baseUrl + path);
  for (const [key, value] of Object.entries(init.query ?? {})) {
    if (value === undefined || value === null) {
      continue;
    }
    if (Array.isArray(value)) {
      for (const item of value) {
        url.searchParams.append(key, String(item));
      }
    } else {
      url.searchParams.set(key, String(value));
    }
  }
  const headers: Record<string, string> = {
    Accept: 'application/json',
    ...this.config.headers,
    ...this.authHeaders(),
    ...init.options?.headers,
  };
  let payload: string | undefined;
  if (init.body !== undefined) {
    headers['Content-Type'] = 'application/json';
    payload = JSON.stringify(init.body);
  }
  const response = await this.fetchImpl(url.toString(), {
    method,
    headers,
    body: payload,
    signal: init.options?.signal,
  });
  const text = await response.text();
  const data: unknown = text ? JSON.parse(text) : undefined;
  if (!response.ok) {
    throw new ApiError(response.status, data);
  }
  return data as T;
}
`
