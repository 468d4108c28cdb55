package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/crux/pkg/value"
)

func TestStringInterningReturnsSamePointer(t *testing.T) {
	in := NewInterner()
	a, created := in.Intern("hello")
	require.True(t, created)
	b, created := in.Intern("hello")
	require.False(t, created)
	require.Same(t, a, b)

	c, created := in.Intern("world")
	require.True(t, created)
	require.NotSame(t, a, c)
}

func TestStringRenderIsItsOwnChars(t *testing.T) {
	s := NewString("abc")
	require.Equal(t, "abc", s.Render())
	require.Equal(t, "abc", s.Bytes())
}

func TestFunctionRenderUsesNameOrScript(t *testing.T) {
	top := NewFunction()
	require.Equal(t, "<script>", top.Render())

	named := NewFunction()
	named.Name = NewString("add")
	require.Equal(t, "<fn add>", named.Render())
}

func TestClosureRenderDelegatesToFunction(t *testing.T) {
	fn := NewFunction()
	fn.Name = NewString("f")
	cl := NewClosure(fn)
	require.Equal(t, "<fn f>", cl.Render())
	require.Len(t, cl.Upvalues, 0)
}

func TestUpvalueCloseHoistsValueOffStack(t *testing.T) {
	slot := value.NumberVal(42)
	uv := NewUpvalue(&slot)
	require.False(t, uv.IsClosed())

	slot = value.NumberVal(43) // simulate the stack slot changing in place
	require.Equal(t, float64(43), uv.Location.Number)

	uv.Close()
	require.True(t, uv.IsClosed())
	require.Equal(t, float64(43), uv.Closed.Number)

	slot = value.NumberVal(99) // no longer observed once closed
	require.Equal(t, float64(43), uv.Location.Number)
}

func TestClassMethodTableAddAllCopiesSuperclassMethods(t *testing.T) {
	super := NewClass(NewString("Animal"))
	speak := NewClosure(NewFunction())
	super.Methods.Set(NewString("speak"), speak)

	sub := NewClass(NewString("Dog"))
	sub.Methods.AddAll(super.Methods)

	got, ok := sub.Methods.Get(NewString("speak"))
	require.True(t, ok)
	require.Same(t, speak, got)
}

func TestInstanceFieldTableSetAndGet(t *testing.T) {
	class := NewClass(NewString("Point"))
	inst := NewInstance(class)

	isNew := inst.Fields.Set(NewString("x"), value.NumberVal(1))
	require.True(t, isNew)

	v, ok := inst.Fields.Get(NewString("x"))
	require.True(t, ok)
	require.Equal(t, float64(1), v.Number)
}

func TestBoundMethodRenderDelegatesToMethod(t *testing.T) {
	fn := NewFunction()
	fn.Name = NewString("greet")
	method := NewClosure(fn)
	inst := NewInstance(NewClass(NewString("Greeter")))

	bound := NewBoundMethod(value.ObjVal(inst), method)
	require.Equal(t, "<fn greet>", bound.Render())
}

func TestNativeRender(t *testing.T) {
	n := NewNative("clock", func(args []value.Value) (value.Value, error) {
		return value.NumberVal(0), nil
	})
	require.Equal(t, "<native fn>", n.Render())
}

func TestTypeName(t *testing.T) {
	require.Equal(t, "boolean", TypeName(value.BoolVal(true)))
	require.Equal(t, "nil", TypeName(value.NilVal()))
	require.Equal(t, "number", TypeName(value.NumberVal(1)))
	require.Equal(t, "string", TypeName(value.ObjVal(NewString("s"))))
	require.Equal(t, "class", TypeName(value.ObjVal(NewClass(NewString("C")))))
}

func TestInternSweepDropsUnmarkedStrings(t *testing.T) {
	in := NewInterner()
	kept, _ := in.Intern("kept")
	in.Intern("dropped")
	kept.Marked = true

	in.Sweep()

	seen := map[string]bool{}
	in.Each(func(s *String) { seen[s.Chars] = true })
	require.Equal(t, map[string]bool{"kept": true}, seen)
}
