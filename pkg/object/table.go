package object

import (
	"github.com/kristofer/crux/pkg/table"
	"github.com/kristofer/crux/pkg/value"
)

// MethodTable maps a method name to its Closure. Classes own one; "class
// Sub < Super" seeds a subclass's table with AddAll(super's table) before
// its own method declarations overwrite any shadowed entries.
type MethodTable struct {
	t *table.Table
}

func NewMethodTable() *MethodTable { return &MethodTable{t: table.New()} }

func (m *MethodTable) Get(name *String) (*Closure, bool) {
	v, ok := m.t.Get(name)
	if !ok {
		return nil, false
	}
	return v.Obj.(*Closure), true
}

func (m *MethodTable) Set(name *String, closure *Closure) {
	m.t.Set(name, value.ObjVal(closure))
}

func (m *MethodTable) AddAll(from *MethodTable) {
	m.t.AddAll(from.t)
}

func (m *MethodTable) Each(fn func(name *String, closure *Closure)) {
	m.t.Each(func(k table.Key, v value.Value) {
		fn(k.(*String), v.Obj.(*Closure))
	})
}

// FieldTable maps a field name to its current value, one per Instance.
type FieldTable struct {
	t *table.Table
}

func NewFieldTable() *FieldTable { return &FieldTable{t: table.New()} }

func (f *FieldTable) Get(name *String) (value.Value, bool) {
	return f.t.Get(name)
}

// Set stores v under name, reporting whether name is new to the table.
func (f *FieldTable) Set(name *String, v value.Value) bool {
	return f.t.Set(name, v)
}

func (f *FieldTable) Each(fn func(name *String, v value.Value)) {
	f.t.Each(func(k table.Key, v value.Value) {
		fn(k.(*String), v)
	})
}
