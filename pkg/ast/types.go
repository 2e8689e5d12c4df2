package ast

import "strconv"

// VcTypeKind defines the kind of a VcType
type VcTypeKind int

// VcType kinds enum
const (
	TYPE_INT VcTypeKind = iota
	TYPE_FLOAT
	TYPE_BOOLEAN
	TYPE_VOID
	TYPE_STRING
	TYPE_ARRAY
)

// VcType represents a resolved type. Arrays carry their element type and,
// when declared with one, their size expression.
type VcType struct {
	Kind VcTypeKind
	Elem *VcType
	Size *Node
}

// Pre-defined types
var (
	TypeInt     = &VcType{Kind: TYPE_INT}
	TypeFloat   = &VcType{Kind: TYPE_FLOAT}
	TypeBoolean = &VcType{Kind: TYPE_BOOLEAN}
	TypeVoid    = &VcType{Kind: TYPE_VOID}
	TypeString  = &VcType{Kind: TYPE_STRING}
)

// ArrayOf builds an array type; size may be nil for parameters.
func ArrayOf(elem *VcType, size *Node) *VcType {
	return &VcType{Kind: TYPE_ARRAY, Elem: elem, Size: size}
}

func (t *VcType) IsArray() bool   { return t != nil && t.Kind == TYPE_ARRAY }
func (t *VcType) IsVoid() bool    { return t != nil && t.Kind == TYPE_VOID }
func (t *VcType) IsFloat() bool   { return t != nil && t.Kind == TYPE_FLOAT }
func (t *VcType) IsBoolean() bool { return t != nil && t.Kind == TYPE_BOOLEAN }

// IsIntLike is true for the types sharing the integer representation.
func (t *VcType) IsIntLike() bool {
	return t != nil && (t.Kind == TYPE_INT || t.Kind == TYPE_BOOLEAN)
}

// Equal compares kinds structurally, ignoring array sizes.
func (t *VcType) Equal(o *VcType) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == TYPE_ARRAY {
		return t.Elem.Equal(o.Elem)
	}
	return true
}

func (t *VcType) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TYPE_INT:
		return "int"
	case TYPE_FLOAT:
		return "float"
	case TYPE_BOOLEAN:
		return "boolean"
	case TYPE_VOID:
		return "void"
	case TYPE_STRING:
		return "string"
	case TYPE_ARRAY:
		if t.Size != nil {
			if lit, ok := t.Size.Data.(IntLitNode); ok {
				return t.Elem.String() + "[" + strconv.Itoa(int(lit.Value)) + "]"
			}
		}
		return t.Elem.String() + "[]"
	}
	return "unknown"
}
