package typescript

import (
	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// RPCEmitter generates JSON-RPC 2.0 clients.
type RPCEmitter struct {
	cfg Config
}

func (e *RPCEmitter) Protocol() schema.ProtocolKind { return schema.ProtocolRPC }

func (e *RPCEmitter) Emit(m *schema.Model, tm *TypeMapper) ([]sink.Artifact, error) {
	return assemble(e.cfg, m, tm, e)
}

func (e *RPCEmitter) summary(ep *schema.Endpoint) string {
	return ep.Method
}

// writeEndpoint renders one call wrapper. The call identifier is the declared
// method, which defaults to the endpoint name.
func (e *RPCEmitter) writeEndpoint(_, w *codeWriter, g *schema.Group, ep *schema.Endpoint, tm *TypeMapper, imp *imports) error {
	loc := g.Name + "." + ep.Name
	sig := newSignature("options")

	args := "{}"
	if len(ep.Params) > 0 {
		pe, required, err := objectType(ep.Params, tm, loc+".params")
		if err != nil {
			return err
		}
		imp.useTypes(pe.Refs...)
		args = sig.add("params", pe.Text, !required)
		if !required {
			args += " ?? {}"
		}
	}
	imp.useClient("RequestOptions")
	sig.reserved("options?: RequestOptions")

	re, err := tm.MapType(ep.Response, Context{Location: loc + ".response"})
	if err != nil {
		return err
	}
	imp.useTypes(re.Refs...)

	w.doc(ep.Description, ep.Deprecated)
	w.open("async " + memberName(ep.Name) + "(" + sig.String() + "): Promise<" + re.Text + "> {")
	w.line("return this.#client.call<" + re.Text + ">(" + w.str(ep.Method) + ", " + args + ", options);")
	w.close("}")
	return nil
}

func (e *RPCEmitter) writeClient(w *codeWriter, m *schema.Model) error {
	writeBaseURL(w, m)
	w.line("")
	writeClientConfig(w, m.Meta.Auth, httpTransportFields)
	w.line("")
	w.snippet(requestOptionsTS)
	w.line("")
	w.snippet(rpcSupportTS)
	w.line("")
	w.open("export class BaseClient {")
	w.snippet(rpcClientTS)
	w.line("")
	writeAuthHeaders(w, m.Meta.Auth)
	w.close("}")
	return nil
}

const rpcSupportTS = `
export class RpcError extends Error {
  constructor(
    readonly code: number,
    message: string,
    readonly data?: unknown,
  ) {
    super(message);
    this.name = 'RpcError';
  }
}

interface RpcReply<T> {
  jsonrpc: '2.0';
  id: number;
  result?: T;
  error?: { code: number; message: string; data?: unknown };
}
`

const rpcClientTS = `
private readonly baseUrl: string;
private readonly fetchImpl: typeof fetch;
private nextId = 1;

constructor(private readonly config: ClientConfig = {}) {
  this.baseUrl = config.baseUrl ?? BASE_URL;
  this.fetchImpl = config.fetch ?? globalThis.fetch.bind(globalThis);
}

async call<T>(method: string, params: unknown, options?: RequestOptions): Promise<T> {
  const id = this.nextId++;
  const response = await this.fetchImpl(this.baseUrl, {
    method: 'POST',
    headers: {
      Accept: 'application/json',
      'Content-Type': 'application/json',
      ...this.config.headers,
      ...this.authHeaders(),
      ...options?.headers,
    },
    body: JSON.stringify({ jsonrpc: '2.0', id, method, params }),
    signal: options?.signal,
  });
  if (!response.ok) {
    throw new RpcError(response.status, ` + "`HTTP ${response.status}`" + `);
  }
  const reply = (await response.json()) as RpcReply<T>;
  if (reply.error) {
    throw new RpcError(reply.error.code, reply.error.message, reply.error.data);
  }
  return reply.result as T;
}
`
