// Package vm implements crux's bytecode interpreter: the operand stack,
// call-frame stack, open-upvalue list, global environment, and the
// tracing garbage collector over the object heap (see gc.go).
//
// A VM is single-use in spirit but reusable in practice — Interpret may be
// called repeatedly against the same instance, the way a REPL does,
// sharing globals and the intern table across each line. Diagnostics and
// print output are written to the io.Writer sinks passed to New, never to
// os.Stdout/os.Stderr directly, so a caller can capture them (and so tests
// can assert against a bytes.Buffer instead of a live terminal).
package vm

import (
	"fmt"
	"io"

	"github.com/kristofer/crux/pkg/chunk"
	"github.com/kristofer/crux/pkg/compiler"
	"github.com/kristofer/crux/pkg/object"
	"github.com/kristofer/crux/pkg/table"
	"github.com/kristofer/crux/pkg/value"
)

// framesMax bounds call-frame nesting; stackMax is the largest the
// operand stack may grow to. Both are fixed at construction so that
// pointers taken into vm.stack (for open upvalues) stay valid: the slice
// never reallocates once it has this much backing capacity.
const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// Result is what Interpret returns: success, or which regime of error
// stopped it.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

// frame is one activation record: the closure being executed, an
// instruction pointer into its function's chunk, and the base index into
// vm.stack where its locals begin (slot 0 is the callee itself, or the
// receiver for methods).
type frame struct {
	closure *object.Closure
	ip      int
	slots   int
}

// VM holds all interpreter state for one running program.
type VM struct {
	stack  []value.Value
	frames []frame

	openUpvalues *object.Upvalue
	globals      *table.Table
	interner     *object.Interner
	initString   *object.String

	objects        value.Obj
	gray           []value.Obj
	bytesAllocated int
	nextGC         int
	stressGC       bool // test-only: force a collection on every allocation

	stdout io.Writer
	stderr io.Writer
}

// New returns a VM ready to interpret programs, with natives registered
// and stdout/stderr routed to the given sinks.
func New(stdout, stderr io.Writer) *VM {
	vm := &VM{
		stack:    make([]value.Value, 0, stackMax),
		globals:  table.New(),
		interner: object.NewInterner(),
		nextGC:   1 << 20,
		stdout:   stdout,
		stderr:   stderr,
	}
	vm.initString, _ = vm.interner.Intern("init")
	vm.defineNatives()
	return vm
}

// Interpret compiles source and, if it compiles cleanly, runs it to
// completion (or until a runtime error aborts it).
func (vm *VM) Interpret(source string) Result {
	fn, ok := compiler.Compile(source, vm.interner, vm.stderr)
	if !ok {
		return ResultCompileError
	}
	vm.adoptCompiled(fn)

	closure := object.NewClosure(fn)
	vm.link(closure)
	vm.push(value.ObjVal(closure))
	vm.callValue(value.ObjVal(closure), 0)

	return vm.run()
}

// adoptCompiled links every not-yet-tracked object reachable from a
// freshly compiled top-level function — nested function constants, their
// string constants, and every currently interned string — into the VM's
// tracked heap,
// without going through track's collection check: at this point nothing
// is rooted yet (the stack and frame list are empty), so a cycle here
// could only discard objects the collector has no way to see are live.
// From here on, track is the allocator, once the interpret loop gives the
// collector real roots to walk.
func (vm *VM) adoptCompiled(fn *object.Function) {
	seen := make(map[value.Obj]bool)
	for o := vm.objects; o != nil; o = o.ObjHeader().Next {
		seen[o] = true
	}
	var walk func(f *object.Function)
	walk = func(f *object.Function) {
		if seen[f] {
			return
		}
		seen[f] = true
		vm.link(f)
		if f.Name != nil && !seen[f.Name] {
			seen[f.Name] = true
			vm.link(f.Name)
		}
		for _, k := range f.Chunk.Constants {
			if !k.IsObj() {
				continue
			}
			switch o := k.Obj.(type) {
			case *object.Function:
				walk(o)
			case *object.String:
				if !seen[o] {
					seen[o] = true
					vm.link(o)
				}
			}
		}
	}
	walk(fn)
	vm.interner.Each(func(s *object.String) {
		if !seen[s] {
			seen[s] = true
			vm.link(s)
		}
	})
}

// --- operand stack -------------------------------------------------------

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) currentFrame() *frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) readByte() byte {
	f := vm.currentFrame()
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort() uint16 {
	hi := vm.readByte()
	lo := vm.readByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant() value.Value {
	return vm.currentFrame().closure.Function.Chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *object.String {
	return vm.readConstant().Obj.(*object.String)
}

// --- the interpreter loop -------------------------------------------------

func (vm *VM) run() Result {
	for {
		op := chunk.OpCode(vm.readByte())
		switch op {
		case chunk.OpConstant:
			vm.push(vm.readConstant())

		case chunk.OpNil:
			vm.push(value.NilVal())
		case chunk.OpTrue:
			vm.push(value.BoolVal(true))
		case chunk.OpFalse:
			vm.push(value.BoolVal(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.currentFrame().slots+slot])
		case chunk.OpSetLocal:
			slot := int(vm.readByte())
			vm.stack[vm.currentFrame().slots+slot] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return ResultRuntimeError
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := vm.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := vm.readString()
			if isNew := vm.globals.Set(name, vm.peek(0)); isNew {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return ResultRuntimeError
			}

		case chunk.OpGetUpvalue:
			idx := vm.readByte()
			vm.push(*vm.currentFrame().closure.Upvalues[idx].Location)
		case chunk.OpSetUpvalue:
			idx := vm.readByte()
			*vm.currentFrame().closure.Upvalues[idx].Location = vm.peek(0)

		case chunk.OpGetProperty:
			if !vm.peek(0).IsObjKind(value.ObjInstance) {
				vm.runtimeError("Only instances have properties.")
				return ResultRuntimeError
			}
			inst := vm.peek(0).Obj.(*object.Instance)
			name := vm.readString()
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if !vm.bindMethod(inst.Class, name) {
				vm.runtimeError("Undefined property '%s'.", name.Chars)
				return ResultRuntimeError
			}
		case chunk.OpSetProperty:
			if !vm.peek(1).IsObjKind(value.ObjInstance) {
				vm.runtimeError("Only instances have fields.")
				return ResultRuntimeError
			}
			inst := vm.peek(1).Obj.(*object.Instance)
			name := vm.readString()
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)
		case chunk.OpGetSuper:
			name := vm.readString()
			superclass := vm.pop().Obj.(*object.Class)
			if !vm.bindMethod(superclass, name) {
				vm.runtimeError("Undefined property '%s'.", name.Chars)
				return ResultRuntimeError
			}

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolVal(value.Equal(a, b)))
		case chunk.OpGreater:
			if !vm.numericBinaryOp(func(a, b float64) value.Value { return value.BoolVal(a > b) }) {
				return ResultRuntimeError
			}
		case chunk.OpLess:
			if !vm.numericBinaryOp(func(a, b float64) value.Value { return value.BoolVal(a < b) }) {
				return ResultRuntimeError
			}
		case chunk.OpAdd:
			if !vm.add() {
				return ResultRuntimeError
			}
		case chunk.OpSubtract:
			if !vm.numericBinaryOp(func(a, b float64) value.Value { return value.NumberVal(a - b) }) {
				return ResultRuntimeError
			}
		case chunk.OpMultiply:
			if !vm.numericBinaryOp(func(a, b float64) value.Value { return value.NumberVal(a * b) }) {
				return ResultRuntimeError
			}
		case chunk.OpDivide:
			if !vm.numericBinaryOp(func(a, b float64) value.Value { return value.NumberVal(a / b) }) {
				return ResultRuntimeError
			}
		case chunk.OpNot:
			vm.push(value.BoolVal(vm.pop().Falsy()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return ResultRuntimeError
			}
			vm.push(value.NumberVal(-vm.pop().Number))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case chunk.OpJump:
			offset := vm.readShort()
			vm.currentFrame().ip += int(offset)
		case chunk.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).Falsy() {
				vm.currentFrame().ip += int(offset)
			}
		case chunk.OpLoop:
			offset := vm.readShort()
			vm.currentFrame().ip -= int(offset)

		case chunk.OpCall:
			argCount := int(vm.readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return ResultRuntimeError
			}
		case chunk.OpInvoke:
			name := vm.readString()
			argCount := int(vm.readByte())
			if !vm.invoke(name, argCount) {
				return ResultRuntimeError
			}
		case chunk.OpSuperInvoke:
			name := vm.readString()
			argCount := int(vm.readByte())
			superclass := vm.pop().Obj.(*object.Class)
			if !vm.invokeFromClass(superclass, name, argCount) {
				return ResultRuntimeError
			}

		case chunk.OpClosure:
			fn := vm.readConstant().Obj.(*object.Function)
			closure := object.NewClosure(fn)
			vm.push(value.ObjVal(closure))
			vm.track(closure)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte()
				index := int(vm.readByte())
				if isLocal != 0 {
					base := vm.currentFrame().slots
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[base+index])
				} else {
					closure.Upvalues[i] = vm.currentFrame().closure.Upvalues[index]
				}
			}
		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[len(vm.stack)-1])
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			f := vm.currentFrame()
			vm.closeUpvalues(&vm.stack[f.slots])
			base := f.slots
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop()
				return ResultOK
			}
			vm.stack = vm.stack[:base]
			vm.push(result)

		case chunk.OpClass:
			name := vm.readString()
			class := object.NewClass(name)
			vm.push(value.ObjVal(class))
			vm.track(class)
		case chunk.OpInherit:
			if !vm.peek(1).IsObjKind(value.ObjClass) {
				vm.runtimeError("Superclass must be a class.")
				return ResultRuntimeError
			}
			superclass := vm.peek(1).Obj.(*object.Class)
			subclass := vm.peek(0).Obj.(*object.Class)
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop()
		case chunk.OpMethod:
			name := vm.readString()
			method := vm.peek(0).Obj.(*object.Closure)
			class := vm.peek(1).Obj.(*object.Class)
			class.Methods.Set(name, method)
			vm.pop()

		default:
			vm.runtimeError("Unknown opcode %d.", op)
			return ResultRuntimeError
		}
	}
}

func (vm *VM) numericBinaryOp(op func(a, b float64) value.Value) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return false
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(op(a.Number, b.Number))
	return true
}

func (vm *VM) add() bool {
	a, b := vm.peek(1), vm.peek(0)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.NumberVal(a.Number + b.Number))
	case a.IsObjKind(value.ObjString) && b.IsObjKind(value.ObjString):
		concatenated := a.Obj.(*object.String).Chars + b.Obj.(*object.String).Chars
		s, created := vm.interner.Intern(concatenated)
		vm.pop()
		vm.pop()
		// Push before track: track may collect, and until s is reachable
		// from a root (here, the stack itself) a just-allocated object
		// would be swept in the same cycle that allocated it.
		vm.push(value.ObjVal(s))
		if created {
			vm.track(s)
		}
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
		return false
	}
	return true
}

// --- calling ---------------------------------------------------------

func (vm *VM) callValue(callee value.Value, argCount int) bool {
	if !callee.IsObj() {
		vm.runtimeError("Can only call functions and classes.")
		return false
	}
	switch o := callee.Obj.(type) {
	case *object.Closure:
		return vm.call(o, argCount)
	case *object.Native:
		args := vm.stack[len(vm.stack)-argCount:]
		result, err := o.Fn(args)
		if err != nil {
			vm.runtimeError("%s", err.Error())
			return false
		}
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(result)
		return true
	case *object.Class:
		inst := object.NewInstance(o)
		vm.stack[len(vm.stack)-argCount-1] = value.ObjVal(inst)
		vm.track(inst)
		if initializer, ok := o.Methods.Get(vm.initString); ok {
			return vm.call(initializer, argCount)
		} else if argCount != 0 {
			vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			return false
		}
		return true
	case *object.BoundMethod:
		vm.stack[len(vm.stack)-argCount-1] = o.Receiver
		return vm.call(o.Method, argCount)
	default:
		vm.runtimeError("Can only call functions and classes.")
		return false
	}
}

func (vm *VM) call(closure *object.Closure, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if len(vm.frames) == framesMax {
		vm.runtimeError("Stack overflow.")
		return false
	}
	vm.frames = append(vm.frames, frame{
		closure: closure,
		ip:      0,
		slots:   len(vm.stack) - argCount - 1,
	})
	return true
}

func (vm *VM) invoke(name *object.String, argCount int) bool {
	receiver := vm.peek(argCount)
	if !receiver.IsObjKind(value.ObjInstance) {
		vm.runtimeError("Only instances have methods.")
		return false
	}
	inst := receiver.Obj.(*object.Instance)
	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[len(vm.stack)-argCount-1] = v
		return vm.callValue(v, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argCount int) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	return vm.call(method, argCount)
}

func (vm *VM) bindMethod(class *object.Class, name *object.String) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	bound := object.NewBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(value.ObjVal(bound))
	vm.track(bound)
	return true
}

// --- runtime errors -----------------------------------------------------

func (vm *VM) runtimeError(format string, args ...interface{}) {
	trace := make([]StackFrame, len(vm.frames))
	for i, f := range vm.frames {
		fn := f.closure.Function
		line := fn.Chunk.Lines[f.ip-1]
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		trace[len(trace)-1-i] = StackFrame{Name: name, SourceLine: line}
	}
	err := newRuntimeError(fmt.Sprintf(format, args...), trace)
	fmt.Fprintln(vm.stderr, err.Error())

	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}
