package typescript

import (
	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// Emitter turns a validated model into the ordered artifacts of a client package.
type Emitter interface {
	// Protocol returns the protocol kind the emitter handles.
	Protocol() schema.ProtocolKind

	// Emit renders m. The mapper must already hold m's registrations.
	Emit(m *schema.Model, tm *TypeMapper) ([]sink.Artifact, error)
}

// Select returns the emitter for kind. Unknown kinds are a GenerationError;
// the validator normally rejects them first.
func Select(kind schema.ProtocolKind, cfg Config) (Emitter, error) {
	cfg = cfg.withDefaults()
	switch kind {
	case schema.ProtocolREST:
		return &RestEmitter{cfg: cfg}, nil
	case schema.ProtocolRPC:
		return &RPCEmitter{cfg: cfg}, nil
	case schema.ProtocolGraphQL:
		return &GraphQLEmitter{cfg: cfg}, nil
	case schema.ProtocolWebSocket:
		return &WebSocketEmitter{cfg: cfg}, nil
	default:
		return nil, generationErrorf("$ocp.type", "no emitter for protocol %q", kind)
	}
}

// Result is the output of Generate.
type Result struct {
	Artifacts []sink.Artifact
	Warnings  []Warning
}

// Generate maps and emits m with the emitter for its protocol. Nothing is
// written; the caller hands the artifacts to a sink.
func Generate(m *schema.Model, cfg Config) (*Result, error) {
	em, err := Select(m.Protocol, cfg)
	if err != nil {
		return nil, err
	}
	tm := NewTypeMapper(cfg)
	if err := tm.Register(m); err != nil {
		return nil, err
	}
	artifacts, err := em.Emit(m, tm)
	if err != nil {
		return nil, err
	}
	return &Result{Artifacts: artifacts, Warnings: tm.Warnings()}, nil
}
