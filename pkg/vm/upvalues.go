package vm

import (
	"unsafe"

	"github.com/kristofer/crux/pkg/object"
	"github.com/kristofer/crux/pkg/value"
)

// addr converts a stack-slot pointer to a comparable integer. Go forbids
// ordering comparisons (<, >) on raw pointers directly; vm.stack is a
// fixed-capacity slice allocated once in New, so these addresses stay
// valid for the life of the VM and comparing them this way is safe.
func addr(p *value.Value) uintptr { return uintptr(unsafe.Pointer(p)) }

// captureUpvalue returns the open upvalue for slot, reusing an existing
// one if a closure already captured it (two closures capturing the same
// local must observe each other's writes), or inserting a new one into
// vm.openUpvalues, kept sorted by descending slot address so
// closeUpvalues can stop at the first slot below its target.
func (vm *VM) captureUpvalue(slot *value.Value) *object.Upvalue {
	var prev *object.Upvalue
	uv := vm.openUpvalues
	for uv != nil && addr(uv.Location) > addr(slot) {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Location == slot {
		return uv
	}

	created := object.NewUpvalue(slot)
	vm.link(created)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues hoists onto the heap every open upvalue pointing at or
// above last (i.e. about to go out of scope), removing each from the
// open list as it's closed.
func (vm *VM) closeUpvalues(last *value.Value) {
	for vm.openUpvalues != nil && addr(vm.openUpvalues.Location) >= addr(last) {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}
