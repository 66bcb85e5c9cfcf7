// Package schema defines the validated in-memory model of an Open Config Protocol
// (OCP) document and the validator that builds it from raw JSON.
//
// A Model only exists for a document that passed every structural check; the
// emitters consume it read-only.
package schema

import "regexp"

// ProtocolKind is the closed set of API styles an OCP document can describe.
type ProtocolKind string

const (
	ProtocolREST      ProtocolKind = "rest"
	ProtocolRPC       ProtocolKind = "rpc"
	ProtocolGraphQL   ProtocolKind = "graphql"
	ProtocolWebSocket ProtocolKind = "websocket"
)

// Protocols lists the supported protocol kinds in documentation order.
var Protocols = []ProtocolKind{ProtocolREST, ProtocolRPC, ProtocolGraphQL, ProtocolWebSocket}

// Valid reports whether k is one of the supported protocol kinds.
func (k ProtocolKind) Valid() bool {
	switch k {
	case ProtocolREST, ProtocolRPC, ProtocolGraphQL, ProtocolWebSocket:
		return true
	}
	return false
}

// HTTPMethods are the verbs a REST endpoint may declare.
var HTTPMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// Model is the validated representation of an OCP document.
type Model struct {
	// Protocol selects the emitter.
	Protocol ProtocolKind

	// Version is the $ocp.version marker, verbatim.
	Version string

	Meta Meta

	// Types holds the objects declared in the top-level "types" section,
	// in declaration order.
	Types []*FieldType

	// Groups holds endpoint groups in declaration order.
	Groups []*Group
}

// Meta describes the API as a whole.
type Meta struct {
	Name        string
	BaseURL     string
	Description string

	// Version is the API version, used for the generated package manifest.
	Version string

	// Auth is nil when the API declares no authentication.
	Auth *Auth
}

// Auth describes how generated clients authenticate.
type Auth struct {
	// Type is "bearer", "api_key" or "basic".
	Type string

	// Header overrides the header name for api_key auth.
	Header string
}

// Group is a named collection of endpoints sharing a generated namespace.
type Group struct {
	Name        string
	Description string
	Endpoints   []*Endpoint
}

// Endpoint is a single declared operation. Which fields are meaningful depends
// on the protocol: REST uses Method, Path, PathParams, Query and Body; RPC and
// GraphQL use Method and Params; WebSocket uses Channel, Send and Receive.
type Endpoint struct {
	Name        string
	Description string
	Deprecated  bool

	// Method is the HTTP verb for REST, the call identifier for RPC and the
	// operation type ("query" or "mutation") for GraphQL.
	Method string

	// Path is the REST path template, e.g. "/users/{id}".
	Path string

	// PathParams are the {name} tokens of Path in order of appearance.
	PathParams []Field

	Query  []Field
	Params []Field

	Body     *FieldType
	Response *FieldType

	// Operation is the GraphQL root field name.
	Operation string

	// Channel is the WebSocket channel name.
	Channel string
	Send    *FieldType
	Receive *FieldType
}

// Field is a named, typed member: an object property or a parameter.
type Field struct {
	Name     string
	Type     *FieldType
	Required bool
}

var pathTokenRE = regexp.MustCompile(`\{([^{}/]+)\}`)

// PathTokens returns the names of the {name} tokens in path, in order of appearance.
func PathTokens(path string) []string {
	matches := pathTokenRE.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// PathSegment is a piece of a path template: either literal text or a parameter.
type PathSegment struct {
	Literal string
	Param   string
}

// SplitPath splits a path template into literal and parameter segments.
func SplitPath(path string) []PathSegment {
	var segments []PathSegment
	last := 0
	for _, loc := range pathTokenRE.FindAllStringSubmatchIndex(path, -1) {
		if loc[0] > last {
			segments = append(segments, PathSegment{Literal: path[last:loc[0]]})
		}
		segments = append(segments, PathSegment{Param: path[loc[2]:loc[3]]})
		last = loc[1]
	}
	if last < len(path) {
		segments = append(segments, PathSegment{Literal: path[last:]})
	}
	return segments
}

// EndpointCount returns the number of endpoints across all groups.
func (m *Model) EndpointCount() int {
	n := 0
	for _, g := range m.Groups {
		n += len(g.Endpoints)
	}
	return n
}
