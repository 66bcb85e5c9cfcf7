package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// NodeKind identifies the JSON value category of a Node.
type NodeKind int

const (
	NodeNull NodeKind = iota
	NodeBool
	NodeNumber
	NodeString
	NodeArray
	NodeObject
)

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeNull:
		return "null"
	case NodeBool:
		return "boolean"
	case NodeNumber:
		return "number"
	case NodeString:
		return "string"
	case NodeArray:
		return "array"
	case NodeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Node is a parsed JSON value that remembers the declaration order of object members.
// The validator reads the raw document through Nodes so that group and endpoint
// order survives into the model.
type Node struct {
	Kind NodeKind

	// Text is the unescaped value of a string, or the literal text of a number.
	Text string

	// Bool is the value of a boolean node.
	Bool bool

	// Items holds array elements in order.
	Items []*Node

	// Members holds object members in declaration order.
	Members []Member
}

// Member is a single key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Get returns the value of the named member, or nil when n is not an object
// or has no such member.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != NodeObject {
		return nil
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// IsObject reports whether n is a non-nil object node.
func (n *Node) IsObject() bool {
	return n != nil && n.Kind == NodeObject
}

// StringValue returns the string held by n and whether n is a string node.
func (n *Node) StringValue() (string, bool) {
	if n == nil || n.Kind != NodeString {
		return "", false
	}
	return n.Text, true
}

// BoolValue returns the boolean held by n, or def when n is not a boolean node.
func (n *Node) BoolValue(def bool) bool {
	if n == nil || n.Kind != NodeBool {
		return def
	}
	return n.Bool
}

// Scalar renders a scalar node the way it appears in diagnostics.
// Composite nodes render as their kind.
func (n *Node) Scalar() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeString, NodeNumber:
		return n.Text
	case NodeBool:
		if n.Bool {
			return "true"
		}
		return "false"
	case NodeNull:
		return "null"
	default:
		return n.Kind.String()
	}
}

// Truthy reports whether a member counts as declared. Missing members, null,
// false, the empty string and zero do not.
func (n *Node) Truthy() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case NodeNull:
		return false
	case NodeBool:
		return n.Bool
	case NodeString:
		return n.Text != ""
	case NodeNumber:
		if f, err := strconv.ParseFloat(n.Text, 64); err == nil {
			return f != 0
		}
		return true
	default:
		return true
	}
}

func (n *Node) set(key string, value *Node) {
	for i := range n.Members {
		if n.Members[i].Key == key {
			n.Members[i].Value = value
			return
		}
	}
	n.Members = append(n.Members, Member{Key: key, Value: value})
}

// ParseError reports a document that is not well-formed JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "malformed schema document: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes a JSON document into an order-preserving Node tree.
// Well-formedness is checked with encoding/json first so callers see the
// standard syntax error; the tree itself is walked with jsonparser, which
// visits object members in document order.
func Parse(data []byte) (*Node, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &ParseError{Err: err}
	}

	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	node, err := buildNode(value, dataType)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return node, nil
}

func buildNode(value []byte, dataType jsonparser.ValueType) (*Node, error) {
	switch dataType {
	case jsonparser.Null:
		return &Node{Kind: NodeNull}, nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeBool, Bool: b}, nil

	case jsonparser.Number:
		return &Node{Kind: NodeNumber, Text: string(value)}, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeString, Text: s}, nil

	case jsonparser.Array:
		node := &Node{Kind: NodeArray}
		var walkErr error
		_, err := jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, err error) {
			if walkErr != nil {
				return
			}
			if err != nil {
				walkErr = err
				return
			}
			child, err := buildNode(item, itemType)
			if err != nil {
				walkErr = err
				return
			}
			node.Items = append(node.Items, child)
		})
		if err != nil {
			return nil, err
		}
		if walkErr != nil {
			return nil, walkErr
		}
		return node, nil

	case jsonparser.Object:
		node := &Node{Kind: NodeObject}
		err := jsonparser.ObjectEach(value, func(key []byte, member []byte, memberType jsonparser.ValueType, _ int) error {
			child, err := buildNode(member, memberType)
			if err != nil {
				return err
			}
			node.set(string(key), child)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return node, nil

	default:
		return nil, fmt.Errorf("unexpected JSON value %q", value)
	}
}
