package typescript

import (
	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// WebSocketEmitter generates channel subscriptions over one multiplexed socket.
type WebSocketEmitter struct {
	cfg Config
}

func (e *WebSocketEmitter) Protocol() schema.ProtocolKind { return schema.ProtocolWebSocket }

func (e *WebSocketEmitter) Emit(m *schema.Model, tm *TypeMapper) ([]sink.Artifact, error) {
	return assemble(e.cfg, m, tm, e)
}

func (e *WebSocketEmitter) summary(ep *schema.Endpoint) string {
	return "channel " + ep.Channel
}

// writeEndpoint renders on<Name>, which subscribes to the channel's incoming
// messages, and send<Name>, which publishes on it. Undeclared payloads are unknown.
func (e *WebSocketEmitter) writeEndpoint(_, w *codeWriter, g *schema.Group, ep *schema.Endpoint, tm *TypeMapper, imp *imports) error {
	loc := g.Name + "." + ep.Name
	receive, err := e.payloadType(ep.Receive, tm, loc+".receive", imp)
	if err != nil {
		return err
	}
	send, err := e.payloadType(ep.Send, tm, loc+".send", imp)
	if err != nil {
		return err
	}
	imp.useClient("Unsubscribe")

	name := typeName(ep.Name)
	channel := w.str(ep.Channel)

	w.doc(ep.Description, ep.Deprecated)
	w.open("on" + name + "(handler: (payload: " + receive + ") => void): Unsubscribe {")
	w.line("return this.#client.subscribe<" + receive + ">(" + channel + ", handler);")
	w.close("}")
	w.line("")
	w.doc(ep.Description, ep.Deprecated)
	w.open("send" + name + "(payload: " + send + "): void {")
	w.line("this.#client.send(" + channel + ", payload);")
	w.close("}")
	return nil
}

func (e *WebSocketEmitter) payloadType(t *schema.FieldType, tm *TypeMapper, loc string, imp *imports) (string, error) {
	if t == nil {
		return "unknown", nil
	}
	te, err := tm.MapType(t, Context{Location: loc})
	if err != nil {
		return "", err
	}
	imp.useTypes(te.Refs...)
	return te.Text, nil
}

func (e *WebSocketEmitter) writeClient(w *codeWriter, m *schema.Model) error {
	writeBaseURL(w, m)
	w.line("")
	writeClientConfig(w, m.Meta.Auth, socketTransportFields)
	w.line("")
	w.snippet(socketSupportTS)
	w.line("")
	w.open("export class BaseClient {")
	w.snippet(socketClientTS)
	w.line("")
	writeAuthParams(w, m.Meta.Auth)
	w.close("}")
	return nil
}

const socketSupportTS = `
export type Unsubscribe = () => void;

interface Envelope {
  channel: string;
  data: unknown;
}
`

const socketClientTS = `
private socket: WebSocket | undefined;
private readonly handlers = new Map<string, Set<(data: unknown) => void>>();
private readonly pending: string[] = [];

constructor(private readonly config: ClientConfig = {}) {}

subscribe<T>(channel: string, handler: (payload: T) => void): Unsubscribe {
  const listeners = this.handlers.get(channel) ?? new Set<(data: unknown) => void>();
  this.handlers.set(channel, listeners);
  const listener = handler as (data: unknown) => void;
  listeners.add(listener);
  this.connect();
  return () => {
    listeners.delete(listener);
  };
}

send(channel: string, data: unknown): void {
  const envelope: Envelope = { channel, data };
  const message = JSON.stringify(envelope);
  const socket = this.connect();
  if (socket.readyState === 1) {
    socket.send(message);
  } else {
    this.pending.push(message);
  }
}

close(): void {
  this.socket?.close();
  this.socket = undefined;
}

private connect(): WebSocket {
  if (this.socket) {
    return this.socket;
  }
  const url = new URL(this.config.baseUrl ?? BASE_URL);
  this.authorize(url);
  const Impl = this.config.WebSocket ?? globalThis.WebSocket;
  const socket = new Impl(url.toString(), this.config.protocols);
  socket.onopen = () => {
    for (const message of this.pending.splice(0)) {
      socket.send(message);
    }
  };
  socket.onmessage = (event: MessageEvent) => {
    const envelope = JSON.parse(String(event.data)) as Envelope;
    for (const handler of this.handlers.get(envelope.channel) ?? []) {
      handler(envelope.data);
    }
  };
  socket.onclose = () => {
    if (this.socket === socket) {
      this.socket = undefined;
    }
  };
  this.socket = socket;
  return socket;
}
`
