package vm

import (
	"github.com/kristofer/crux/pkg/object"
	"github.com/kristofer/crux/pkg/table"
	"github.com/kristofer/crux/pkg/value"
)

// track links a freshly allocated object into the VM's object list and
// runs the collector first if this allocation pushes bytesAllocated past
// nextGC (or if stressGC forces a check on every allocation). Every
// caller must make obj reachable from a root — usually by having already
// pushed its Value onto the operand stack — before calling track, since
// the collection check below may run before obj is linked.
func (vm *VM) track(obj value.Obj) {
	vm.bytesAllocated += objectSize(obj)
	if vm.stressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
	vm.link(obj)
}

// link is track without the collection check, for objects adopted before
// the VM has any roots to walk (see adoptCompiled) or objects that by
// construction cannot be collected before they're linked.
func (vm *VM) link(obj value.Obj) {
	obj.ObjHeader().Next = vm.objects
	vm.objects = obj
}

func (vm *VM) collectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.interner.Sweep() // weak-ref fixup: drop interned strings nothing marked
	vm.sweepObjects()
	if vm.nextGC < vm.bytesAllocated*2 {
		vm.nextGC = vm.bytesAllocated * 2
	}
}

func (vm *VM) markRoots() {
	for _, v := range vm.stack {
		vm.markValue(v)
	}
	for _, f := range vm.frames {
		vm.markObject(f.closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		vm.markObject(uv)
	}
	vm.globals.Each(func(_ table.Key, v value.Value) {
		vm.markValue(v)
	})
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
}

func (vm *VM) markValue(v value.Value) {
	if v.IsObj() {
		vm.markObject(v.Obj)
	}
}

func (vm *VM) markObject(obj value.Obj) {
	if obj == nil {
		return
	}
	h := obj.ObjHeader()
	if h.Marked {
		return
	}
	h.Marked = true
	vm.gray = append(vm.gray, obj)
}

func (vm *VM) traceReferences() {
	for len(vm.gray) > 0 {
		obj := vm.gray[len(vm.gray)-1]
		vm.gray = vm.gray[:len(vm.gray)-1]
		vm.blacken(obj)
	}
}

// blacken marks everything obj directly references. The object kinds
// that hold no further references (String, Native) fall through the
// switch with nothing to do.
func (vm *VM) blacken(obj value.Obj) {
	switch o := obj.(type) {
	case *object.Function:
		if o.Name != nil {
			vm.markObject(o.Name)
		}
		for _, k := range o.Chunk.Constants {
			vm.markValue(k)
		}
	case *object.Closure:
		vm.markObject(o.Function)
		for _, uv := range o.Upvalues {
			// OP_CLOSURE can collect before it has filled every slot.
			if uv != nil {
				vm.markObject(uv)
			}
		}
	case *object.Upvalue:
		vm.markValue(o.Closed)
	case *object.Class:
		vm.markObject(o.Name)
		o.Methods.Each(func(_ *object.String, closure *object.Closure) {
			vm.markObject(closure)
		})
	case *object.Instance:
		vm.markObject(o.Class)
		o.Fields.Each(func(_ *object.String, v value.Value) {
			vm.markValue(v)
		})
	case *object.BoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	}
}

// sweepObjects walks the tracked object list, freeing everything the
// mark phase did not reach and clearing the mark bit on everything it
// did (so the next cycle starts from a clean slate).
func (vm *VM) sweepObjects() {
	var prev value.Obj
	cur := vm.objects
	for cur != nil {
		h := cur.ObjHeader()
		next := h.Next
		if h.Marked {
			h.Marked = false
			prev = cur
		} else {
			vm.bytesAllocated -= objectSize(cur)
			if prev == nil {
				vm.objects = next
			} else {
				prev.ObjHeader().Next = next
			}
		}
		cur = next
	}
}

// objectSize is a deliberately approximate accounting figure — crux
// tracks it only to decide when to run a cycle, not to report real
// memory usage.
func objectSize(obj value.Obj) int {
	switch o := obj.(type) {
	case *object.String:
		return 32 + len(o.Chars)
	case *object.Function:
		return 64
	case *object.Closure:
		return 32 + 8*len(o.Upvalues)
	case *object.Upvalue:
		return 32
	case *object.Class:
		return 32
	case *object.Instance:
		return 32
	case *object.BoundMethod:
		return 32
	case *object.Native:
		return 32
	default:
		return 16
	}
}
