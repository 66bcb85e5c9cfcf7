package schema

// TypeKind identifies the variant of a FieldType.
type TypeKind int

const (
	TypePrimitive TypeKind = iota // Scalar identified by Tag
	TypeArray                     // Sequence of Elem
	TypeObject                    // Named or inline object with ordered Properties
	TypeRef                       // Reference to a named object
)

// String returns the string representation of the type kind.
func (k TypeKind) String() string {
	switch k {
	case TypePrimitive:
		return "primitive"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	case TypeRef:
		return "ref"
	default:
		return "unknown"
	}
}

// FieldType is the recursive shape description used for bodies, responses,
// parameters and message payloads.
//
// The JSON forms accepted in a document are:
//
//	"string"                                    primitive with tag "string"
//	["string"]                                  array of string
//	{"type": "number", "nullable": true}        primitive with modifiers
//	{"type": "array", "items": <type>}          array
//	{"type": "object", "name": "User",
//	 "properties": {"id": "string"}}            object, registered as User
//	{"$ref": "User"}                            reference to a named object
//
// Primitive tags are not checked here; the type mapper rejects tags it does
// not support.
type FieldType struct {
	Kind TypeKind

	// Tag is the primitive tag, e.g. "string".
	Tag string

	// Elem is the element type of an array.
	Elem *FieldType

	// Name is the registered name of an object, or the target of a reference.
	// Empty for inline objects.
	Name string

	// Properties holds object members in declaration order.
	Properties []Field

	Nullable    bool
	Description string

	// Enum restricts a primitive to the listed literals.
	Enum []*Node

	// Default is the declared default literal, if any.
	Default *Node
}

// Primitive returns a FieldType for the given primitive tag.
func Primitive(tag string) *FieldType {
	return &FieldType{Kind: TypePrimitive, Tag: tag}
}

// ArrayOf returns a FieldType for a sequence of elem.
func ArrayOf(elem *FieldType) *FieldType {
	return &FieldType{Kind: TypeArray, Elem: elem}
}

// ObjectOf returns an object FieldType. An empty name yields an inline object.
func ObjectOf(name string, props ...Field) *FieldType {
	return &FieldType{Kind: TypeObject, Name: name, Properties: props}
}

// Ref returns a reference to the named object.
func Ref(name string) *FieldType {
	return &FieldType{Kind: TypeRef, Name: name}
}

// Walk calls fn for t and every FieldType nested in it, depth first in
// declaration order. Walking stops descending below a node when fn returns false.
func (t *FieldType) Walk(fn func(*FieldType) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch t.Kind {
	case TypeArray:
		t.Elem.Walk(fn)
	case TypeObject:
		for _, p := range t.Properties {
			p.Type.Walk(fn)
		}
	}
}
