// Package koto is the embeddable runtime's host-facing entry point. It
// wraps package vm with the small surface a host program needs: construct
// a runtime, register external functions and objects, execute a compiled
// Chunk, and call back into script values.
package koto

import (
	"github.com/rs/zerolog"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/value"
	"github.com/kotolang/koto/vm"
)

// Option configures a Koto runtime, re-exporting vm.Option so host code
// depends only on this package.
type Option = vm.Option

var (
	WithLogger         = vm.WithLogger
	WithStackLimit     = vm.WithStackLimit
	WithCallDepthLimit = vm.WithCallDepthLimit
	WithShowBytecode   = vm.WithShowBytecode
	WithShowAnnotated  = vm.WithShowAnnotated
	WithArgs           = vm.WithArgs
)

// Koto is an embeddable runtime instance: one VirtualMachine plus the
// conveniences a host embeds against.
type Koto struct {
	vm *vm.VirtualMachine
}

// New constructs a Koto runtime.
func New(opts ...Option) *Koto {
	return &Koto{vm: vm.New(opts...)}
}

// RegisterFunction exposes a host Go function to scripts under name in
// the module-global map.
func (k *Koto) RegisterFunction(name string, fn value.ExternalFunc) error {
	return k.vm.Globals().Insert(value.NewString(name), value.NewExternalFunction(name, fn))
}

// RegisterObject exposes a host Object under name.
func (k *Koto) RegisterObject(name string, obj value.Object) error {
	return k.vm.Globals().Insert(value.NewString(name), obj)
}

// Execute runs chunk as the top-level script. If the script's global map
// defines an `@main` function once top-level execution completes, it is
// invoked before the script's own return value is used for anything.
func (k *Koto) Execute(chunk *bytecode.Chunk) (value.Value, error) {
	result, err := k.vm.Run(chunk)
	if err != nil {
		return nil, err
	}
	if mainFn, ok := k.vm.Globals().Get(value.NewString(value.MetaMain)); ok {
		if _, err := k.vm.Call(mainFn, nil); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Call invokes fn as a function from host code with args, returning its
// result or a runtime error carrying source position and call-site trail
// (the trail lives on the returned *errz.Error).
func (k *Koto) Call(fn value.Value, args []value.Value) (value.Value, error) {
	return k.vm.Call(fn, args)
}

// Get retrieves a value from the module-global map by name.
func (k *Koto) Get(name string) (value.Value, bool) {
	return k.vm.Globals().Get(value.NewString(name))
}

// Globals returns the underlying module-global map for advanced host use
// (seeding many values at once, inspecting after execution).
func (k *Koto) Globals() *value.Map {
	return k.vm.Globals()
}

// NopLogger is the zero-overhead default logger Koto uses when WithLogger
// is not supplied, re-exported for host code that wants to pass it back
// explicitly (e.g. to silence a previously configured logger).
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Run is a convenience one-shot: construct a runtime, execute chunk, and
// discard it.
func Run(chunk *bytecode.Chunk, opts ...Option) (value.Value, error) {
	return New(opts...).Execute(chunk)
}
