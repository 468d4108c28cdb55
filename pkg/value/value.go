// Package value defines crux's tagged-union runtime Value type.
//
// A Value is copy-by-value: booleans, nil, and numbers carry their payload
// directly, while strings, functions, closures, classes, instances, bound
// methods, and natives are represented by a Value whose Obj field points
// at a heap-allocated object. Only that Obj field participates in GC
// tracing.
//
// Obj is declared here (rather than in a downstream "object" package) as a
// narrow interface so that value, chunk, and table can all sit below
// object in the import graph without a cycle: object's concrete types
// implement Obj, but nothing in this file needs to know about them.
package value

import (
	"math"
	"strconv"
)

// Kind discriminates the payload a Value carries.
type Kind byte

const (
	Bool Kind = iota
	Nil
	Number
	ObjRef
)

// ObjKind tags the heap-object taxonomy from the spec's data model.
type ObjKind byte

const (
	ObjString ObjKind = iota
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
	ObjNative
)

func (k ObjKind) String() string {
	switch k {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjBoundMethod:
		return "bound method"
	case ObjNative:
		return "native"
	default:
		return "unknown"
	}
}

// Header is the common prefix every heap object embeds: its kind tag, the
// GC mark bit, and the intrusive next-pointer threading the VM's global
// object list.
type Header struct {
	Kind   ObjKind
	Marked bool
	Next   Obj
}

// Obj is satisfied by every heap object. Kind-specific behavior (tracing,
// rendering) is reached by a type switch on ObjHeader().Kind in the
// consuming package, not by further interface methods — see spec's
// object-polymorphism note: the kind set is closed, so dispatch is by
// switch rather than vtable. Render is the one exception: it is cheap,
// total, and needed by this package's own Value.String, so it is part of
// the interface rather than routed back through a switch in package
// object (which would otherwise need to import this package's Value and
// create a cycle of its own).
type Obj interface {
	ObjHeader() *Header
	Render() string
}

// Value is a tag plus payload record, per spec's "straightforward
// tag+payload" encoding. The alternative NaN-boxed 64-bit-word encoding
// is equally valid per spec but not chosen here (see DESIGN.md).
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Obj    Obj
}

func BoolVal(b bool) Value      { return Value{Kind: Bool, Bool: b} }
func NilVal() Value             { return Value{Kind: Nil} }
func NumberVal(n float64) Value { return Value{Kind: Number, Number: n} }
func ObjVal(o Obj) Value        { return Value{Kind: ObjRef, Obj: o} }

func (v Value) IsBool() bool   { return v.Kind == Bool }
func (v Value) IsNil() bool    { return v.Kind == Nil }
func (v Value) IsNumber() bool { return v.Kind == Number }
func (v Value) IsObj() bool    { return v.Kind == ObjRef }

// IsObjKind reports whether v is a heap-object reference of the given kind.
func (v Value) IsObjKind(k ObjKind) bool {
	return v.Kind == ObjRef && v.Obj.ObjHeader().Kind == k
}

// Falsy reports whether v counts as false in a conditional context: nil
// and the boolean false are falsy; everything else (including 0 and "")
// is truthy.
func (v Value) Falsy() bool {
	switch v.Kind {
	case Nil:
		return true
	case Bool:
		return !v.Bool
	default:
		return false
	}
}

// Equal implements same-kind-only value equality. Numbers compare
// bitwise (NaN is unequal to everything, including itself, via Go's own
// float equality). Heap-object references — including strings, which are
// interned — compare by identity.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Bool:
		return a.Bool == b.Bool
	case Nil:
		return true
	case Number:
		return a.Number == b.Number
	case ObjRef:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders v the way `print` does: shortest round-trip decimal for
// numbers, literal spellings for bool/nil, and the referenced object's own
// Render for everything else.
func (v Value) String() string {
	switch v.Kind {
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case Nil:
		return "nil"
	case Number:
		return formatNumber(v.Number)
	case ObjRef:
		return v.Obj.Render()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
