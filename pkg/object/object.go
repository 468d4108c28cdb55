// Package object implements crux's heap object taxonomy: strings,
// functions, closures, upvalues, classes, instances, bound methods, and
// natives. Every variant embeds value.Header (kind tag, GC mark bit, and
// the intrusive next-pointer for the VM's object list) and implements
// value.Obj.
//
// Dispatch across the taxonomy — GC tracing and size accounting in pkg/vm —
// is by an explicit type switch, per spec: the set of kinds is closed and
// performance-critical, so crux does not reach for per-kind interface
// methods beyond the one (Render) that value.Obj itself requires.
package object

import (
	"fmt"

	"github.com/kristofer/crux/pkg/chunk"
	"github.com/kristofer/crux/pkg/value"
)

// String is an interned byte sequence: one canonical instance exists per
// distinct byte sequence in a running VM (see Interner.Intern).
type String struct {
	value.Header
	Chars string
	hash  uint32
}

func NewString(chars string) *String {
	s := &String{Chars: chars, hash: fnvHash(chars)}
	s.Header.Kind = value.ObjString
	return s
}

func (s *String) ObjHeader() *value.Header { return &s.Header }
func (s *String) Render() string           { return s.Chars }
func (s *String) Bytes() string            { return s.Chars }
func (s *String) Hash() uint32             { return s.hash }

func fnvHash(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// Function is a compile-time artifact: arity, upvalue count, its chunk,
// and an optional name (nil for the top-level script). It is never
// directly called at runtime — only a Closure wrapping it is callable.
type Function struct {
	value.Header
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
	Name         *String // nil for the implicit top-level script function
}

func NewFunction() *Function {
	f := &Function{Chunk: chunk.New()}
	f.Header.Kind = value.ObjFunction
	return f
}

func (f *Function) ObjHeader() *value.Header { return &f.Header }
func (f *Function) NumUpvalues() int         { return f.UpvalueCount }

func (f *Function) Render() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// Closure pairs a compiled Function with its captured Upvalues. It is the
// actual callable value.
type Closure struct {
	value.Header
	Function *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function) *Closure {
	c := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	c.Header.Kind = value.ObjClosure
	return c
}

func (c *Closure) ObjHeader() *value.Header { return &c.Header }
func (c *Closure) Render() string           { return c.Function.Render() }

// Upvalue indirects a variable closed over by a nested function. While
// open, Location points at a live operand-stack slot; once closed, it owns
// the value in Closed and Location points at that field instead. Next
// threads the VM's sorted open-upvalue list.
type Upvalue struct {
	value.Header
	Location *value.Value
	Closed   value.Value
	Next     *Upvalue
}

func NewUpvalue(slot *value.Value) *Upvalue {
	u := &Upvalue{Location: slot}
	u.Header.Kind = value.ObjUpvalue
	return u
}

func (u *Upvalue) ObjHeader() *value.Header { return &u.Header }
func (u *Upvalue) Render() string           { return "<upvalue>" }

// IsClosed reports whether Close has hoisted this upvalue's value off the
// stack and onto the heap.
func (u *Upvalue) IsClosed() bool { return u.Location == &u.Closed }

// Close hoists the upvalue's current value into Closed and retargets
// Location to point there, so it is self-contained and can outlive the
// stack frame that created it.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Class is a name and a method table (selector name -> Closure).
type Class struct {
	value.Header
	Name    *String
	Methods *MethodTable
}

func NewClass(name *String) *Class {
	c := &Class{Name: name, Methods: NewMethodTable()}
	c.Header.Kind = value.ObjClass
	return c
}

func (c *Class) ObjHeader() *value.Header { return &c.Header }
func (c *Class) Render() string           { return fmt.Sprintf("<class %s>", c.Name.Chars) }

// Instance is a class pointer plus a field table (name -> value).
type Instance struct {
	value.Header
	Class  *Class
	Fields *FieldTable
}

func NewInstance(class *Class) *Instance {
	i := &Instance{Class: class, Fields: NewFieldTable()}
	i.Header.Kind = value.ObjInstance
	return i
}

func (i *Instance) ObjHeader() *value.Header { return &i.Header }
func (i *Instance) Render() string           { return fmt.Sprintf("<%s instance>", i.Class.Name.Chars) }

// BoundMethod pairs a receiver value with the method Closure that was
// resolved for it, produced by property access that finds a method.
type BoundMethod struct {
	value.Header
	Receiver value.Value
	Method   *Closure
}

func NewBoundMethod(receiver value.Value, method *Closure) *BoundMethod {
	b := &BoundMethod{Receiver: receiver, Method: method}
	b.Header.Kind = value.ObjBoundMethod
	return b
}

func (b *BoundMethod) ObjHeader() *value.Header { return &b.Header }
func (b *BoundMethod) Render() string           { return b.Method.Render() }

// NativeFn is the signature every native function implements.
type NativeFn func(args []value.Value) (value.Value, error)

// Native wraps a Go function so it can be called as a crux value.
type Native struct {
	value.Header
	Name string
	Fn   NativeFn
}

func NewNative(name string, fn NativeFn) *Native {
	n := &Native{Name: name, Fn: fn}
	n.Header.Kind = value.ObjNative
	return n
}

func (n *Native) ObjHeader() *value.Header { return &n.Header }
func (n *Native) Render() string           { return "<native fn>" }

// TypeName returns the human-readable type name used in runtime type
// errors ("Operand must be a number.", etc.).
func TypeName(v value.Value) string {
	switch {
	case v.IsBool():
		return "boolean"
	case v.IsNil():
		return "nil"
	case v.IsNumber():
		return "number"
	case v.IsObjKind(value.ObjString):
		return "string"
	default:
		return v.Obj.ObjHeader().Kind.String()
	}
}
