package typescript

import (
	"strings"

	"github.com/broady/ocpgen/schema"
)

// Pieces of src/client.ts shared by the protocol emitters.

const defaultAPIKeyHeader = "X-API-Key"

func apiKeyHeader(a *schema.Auth) string {
	if a.Header != "" {
		return a.Header
	}
	return defaultAPIKeyHeader
}

func writeBaseURL(w *codeWriter, m *schema.Model) {
	w.line("export const BASE_URL = " + w.str(m.Meta.BaseURL) + ";")
}

const httpTransportFields = `
/** Overrides the base URL declared by the API. */
baseUrl?: string;
/** Headers sent with every request. */
headers?: Record<string, string>;
/** Fetch implementation, defaults to the global fetch. */
fetch?: typeof fetch;
`

const socketTransportFields = `
/** Overrides the base URL declared by the API. */
baseUrl?: string;
/** WebSocket constructor, defaults to the global WebSocket. */
WebSocket?: typeof WebSocket;
/** Subprotocols offered during the handshake. */
protocols?: string | string[];
`

// writeClientConfig writes the ClientConfig interface: transport fields
// followed by the credentials the auth scheme needs.
func writeClientConfig(w *codeWriter, auth *schema.Auth, transport string) {
	w.open("export interface ClientConfig {")
	w.snippet(transport)
	if auth != nil {
		switch auth.Type {
		case "bearer":
			w.line("/** Bearer token sent in the Authorization header. */")
			w.line("token?: string;")
		case "api_key":
			w.line("/** API key sent in the " + apiKeyHeader(auth) + " header. */")
			w.line("apiKey?: string;")
		case "basic":
			w.line("/** Basic auth credentials. */")
			w.line("username?: string;")
			w.line("password?: string;")
		}
	}
	w.close("}")
}

const requestOptionsTS = `
export interface RequestOptions {
  /** Extra headers for this call. */
  headers?: Record<string, string>;
  /** Aborts the call. */
  signal?: AbortSignal;
}
`

// writeAuthHeaders writes the private authHeaders method of an HTTP base client.
func writeAuthHeaders(w *codeWriter, auth *schema.Auth) {
	w.open("private authHeaders(): Record<string, string> {")
	w.line("const headers: Record<string, string> = {};")
	if auth != nil {
		switch auth.Type {
		case "bearer":
			w.open("if (this.config.token) {")
			w.line("headers[" + w.str("Authorization") + "] = `Bearer ${this.config.token}`;")
			w.close("}")
		case "api_key":
			w.open("if (this.config.apiKey) {")
			w.line("headers[" + w.str(apiKeyHeader(auth)) + "] = this.config.apiKey;")
			w.close("}")
		case "basic":
			w.open("if (this.config.username !== undefined) {")
			w.line("const credentials = `${this.config.username}:${this.config.password ?? " + w.str("") + "}`;")
			w.line("headers[" + w.str("Authorization") + "] = `Basic ${btoa(credentials)}`;")
			w.close("}")
		}
	}
	w.line("return headers;")
	w.close("}")
}

// writeAuthParams writes the private authorize method of the socket client.
// Browsers cannot set handshake headers, so credentials travel in the URL.
func writeAuthParams(w *codeWriter, auth *schema.Auth) {
	w.open("private authorize(url: URL): void {")
	if auth == nil {
		w.line("void url;")
	} else {
		switch auth.Type {
		case "bearer":
			w.open("if (this.config.token) {")
			w.line("url.searchParams.set(" + w.str("access_token") + ", this.config.token);")
			w.close("}")
		case "api_key":
			w.open("if (this.config.apiKey) {")
			w.line("url.searchParams.set(" + w.str(strings.ToLower(apiKeyHeader(auth))) + ", this.config.apiKey);")
			w.close("}")
		case "basic":
			w.open("if (this.config.username !== undefined) {")
			w.line("url.username = this.config.username;")
			w.line("url.password = this.config.password ?? " + w.str("") + ";")
			w.close("}")
		}
	}
	w.close("}")
}

// signature collects the parameters of one generated method.
type signature struct {
	scope  scope
	params []string
}

func newSignature(reserved ...string) *signature {
	return &signature{scope: newScope(reserved...)}
}

// add appends a parameter and returns the identifier it was given.
func (s *signature) add(name, typ string, optional bool) string {
	ident := s.scope.claim(name)
	if optional {
		s.params = append(s.params, ident+"?: "+typ)
	} else {
		s.params = append(s.params, ident+": "+typ)
	}
	return ident
}

// reserved appends a parameter whose name was reserved by newSignature.
func (s *signature) reserved(param string) {
	s.params = append(s.params, param)
}

func (s *signature) String() string {
	return strings.Join(s.params, ", ")
}

// objectType renders fields as an inline object type, reporting the declared
// type names it mentions.
func objectType(fields []schema.Field, tm *TypeMapper, loc string) (TypeExpr, bool, error) {
	var expr TypeExpr
	anyRequired := false
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		fe, err := tm.MapType(f.Type, Context{Location: loc + "." + f.Name})
		if err != nil {
			return TypeExpr{}, false, err
		}
		expr.addRefs(fe.Refs...)
		anyRequired = anyRequired || f.Required
		parts = append(parts, tm.PropertyKey(f.Name)+optionalMark(f.Required)+": "+fe.Text)
	}
	expr.Text = "{ " + strings.Join(parts, "; ") + " }"
	return expr, anyRequired, nil
}

// shorthand renders an object member, using shorthand syntax when key and
// value are the same identifier.
func shorthand(key, ident string) string {
	if key == ident {
		return key
	}
	return key + ": " + ident
}
