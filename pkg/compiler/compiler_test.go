package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/crux/pkg/chunk"
	"github.com/kristofer/crux/pkg/object"
)

func compile(t *testing.T, source string) (*object.Function, string, bool) {
	t.Helper()
	var errs bytes.Buffer
	fn, ok := Compile(source, object.NewInterner(), &errs)
	return fn, errs.String(), ok
}

func TestCompileSimpleExpressionStatement(t *testing.T) {
	fn, errs, ok := compile(t, `print 1 + 2 * 3;`)
	require.True(t, ok)
	require.Empty(t, errs)
	require.NotNil(t, fn)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpPrint))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpAdd))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpMultiply))
}

func TestCompileEmptySourceEmitsImplicitReturn(t *testing.T) {
	fn, _, ok := compile(t, ``)
	require.True(t, ok)
	require.Equal(t, []byte{byte(chunk.OpNil), byte(chunk.OpReturn)}, fn.Chunk.Code)
}

func TestStringLiteralsInternAcrossOccurrences(t *testing.T) {
	fn, _, ok := compile(t, `var a = "foo"; var b = "foo";`)
	require.True(t, ok)

	var foos []*object.String
	for _, c := range fn.Chunk.Constants {
		if s, isStr := c.Obj.(*object.String); isStr && s.Chars == "foo" {
			foos = append(foos, s)
		}
	}
	require.Len(t, foos, 2)
	require.Same(t, foos[0], foos[1])
}

func TestReturnOutsideFunctionIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `return 1;`)
	require.False(t, ok)
	require.Contains(t, errs, "Can't return from top-level code.")
}

func TestReturnValueInsideInitializerIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `
class Foo {
  init() {
    return 1;
  }
}`)
	require.False(t, ok)
	require.Contains(t, errs, "Can't return a value from an initializer.")
}

func TestThisOutsideClassIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `print this;`)
	require.False(t, ok)
	require.Contains(t, errs, "Can't use 'this' outside of a class.")
}

func TestSuperOutsideClassIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `print super.foo;`)
	require.False(t, ok)
	require.Contains(t, errs, "Can't use 'super' outside of a class.")
}

func TestSuperWithNoSuperclassIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `
class A {
  foo() {
    super.foo();
  }
}`)
	require.False(t, ok)
	require.Contains(t, errs, "Can't use 'super' in a class with no superclass.")
}

func TestDuplicateLocalInSameScopeIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `{ var a = 1; var a = 2; }`)
	require.False(t, ok)
	require.Contains(t, errs, "Already a variable with this name in this scope.")
}

func TestReadingOwnInitializerIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `{ var a = a; }`)
	require.False(t, ok)
	require.Contains(t, errs, "Can't read local variable in its own initializer.")
}

func TestInvalidAssignmentTargetIsCompileError(t *testing.T) {
	_, errs, ok := compile(t, `1 + 2 = 3;`)
	require.False(t, ok)
	require.Contains(t, errs, "Invalid assignment target.")
}

func TestFunctionWith255ParamsCompiles(t *testing.T) {
	var params []string
	for i := 0; i < 255; i++ {
		params = append(params, "p"+itoa(i))
	}
	src := "fun f(" + strings.Join(params, ",") + ") {}"
	_, errs, ok := compile(t, src)
	require.True(t, ok, errs)
}

func TestFunctionWith256ParamsIsCompileError(t *testing.T) {
	var params []string
	for i := 0; i < 256; i++ {
		params = append(params, "p"+itoa(i))
	}
	src := "fun f(" + strings.Join(params, ",") + ") {}"
	_, errs, ok := compile(t, src)
	require.False(t, ok)
	require.Contains(t, errs, "Can't have more than 255 parameters.")
}

func TestClosureCapturesEnclosingLocalAsUpvalue(t *testing.T) {
	fn, errs, ok := compile(t, `
fun make(n) {
  fun inc() {
    n = n + 1;
    return n;
  }
  return inc;
}`)
	require.True(t, ok, errs)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpClosure))
}

func TestClassDeclarationEmitsClassAndMethodOps(t *testing.T) {
	fn, errs, ok := compile(t, `
class A {
  speak() { print "A"; }
}
class B < A {
  speak() { super.speak(); print "B"; }
}`)
	require.True(t, ok, errs)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpClass))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpInherit))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpMethod))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpSuperInvoke))
}

func TestForLoopDesugarsToJumpsAndLoop(t *testing.T) {
	fn, errs, ok := compile(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	require.True(t, ok, errs)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpLoop))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpJumpIfFalse))
}

// TestChunkWithMoreThan256ConstantsIsCompileError: 256 distinct string
// literals exactly fill the one-byte-addressable constant pool (indices
// 0-255); a 257th distinct constant is what overflows it.
func TestChunkWithMoreThan256ConstantsIsCompileError(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 257; i++ {
		b.WriteString("\"s")
		b.WriteString(itoa(i))
		b.WriteString("\";")
	}
	_, errs, ok := compile(t, b.String())
	require.False(t, ok)
	require.Contains(t, errs, "Too many constants in one chunk.")
}

// TestJumpOfExactly65535BytesCompiles and its 65536 sibling exercise
// emitJump/patchJump directly rather than via source text: emitJump leaves
// the placeholder's offset pointing two bytes before the current code
// length, so appending exactly N raw bytes before patching makes the
// computed jump distance exactly N — letting these hit spec.md §8's
// boundary precisely instead of approximating it through surface syntax.
func newJumpTestCompiler() *Compiler {
	return &Compiler{errOut: &bytes.Buffer{}, fn: newFunctionState(nil, typeScript, "")}
}

func TestJumpOfExactly65535BytesCompiles(t *testing.T) {
	c := newJumpTestCompiler()
	offset := c.emitJump(chunk.OpJump)
	for i := 0; i < 65535; i++ {
		c.emitByte(0)
	}
	c.patchJump(offset)
	require.False(t, c.hadError)
}

func TestJumpOf65536BytesIsCompileError(t *testing.T) {
	c := newJumpTestCompiler()
	offset := c.emitJump(chunk.OpJump)
	for i := 0; i < 65536; i++ {
		c.emitByte(0)
	}
	c.patchJump(offset)
	require.True(t, c.hadError)
	require.Contains(t, c.errOut.(*bytes.Buffer).String(), "Too much code to jump over.")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
