package vm

import (
	"fmt"
	"time"

	"github.com/kristofer/crux/pkg/object"
	"github.com/kristofer/crux/pkg/value"
)

// defineNatives populates the global table with the VM's built-in
// functions, callable from crux source exactly like user-defined ones.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock)
}

func (vm *VM) defineNative(name string, fn object.NativeFn) {
	s, created := vm.interner.Intern(name)
	native := object.NewNative(name, fn)
	vm.globals.Set(s, value.ObjVal(native))
	if created {
		vm.link(s)
	}
	vm.link(native)
}

// nativeClock returns the number of seconds since the Unix epoch, the
// same clock() clox exposes for benchmarking scripts.
func nativeClock(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Value{}, fmt.Errorf("clock() takes no arguments")
	}
	return value.NumberVal(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}
