package vm

import "github.com/rs/zerolog"

// Default resource limits for a VirtualMachine constructed with no
// overriding options.
const (
	DefaultStackSizeLimit = 64 * 1024
	DefaultCallDepthLimit = 1024
)

// Option configures a VirtualMachine at construction time.
type Option func(*VirtualMachine)

// WithLogger installs a zerolog.Logger the VM uses for opcode tracing and
// generator suspend/resume diagnostics. Defaults to a disabled logger so
// embedding has no overhead when unused.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithStackLimit sets the maximum register file growth before a
// StackOverflow error is raised.
func WithStackLimit(n int) Option {
	return func(vm *VirtualMachine) {
		vm.stackSizeLimit = n
	}
}

// WithCallDepthLimit sets the maximum frame stack depth.
func WithCallDepthLimit(n int) Option {
	return func(vm *VirtualMachine) {
		vm.callDepthLimit = n
	}
}

// WithShowBytecode enables printing disassembled bytecode before
// execution.
func WithShowBytecode(show bool) Option {
	return func(vm *VirtualMachine) {
		vm.showBytecode = show
	}
}

// WithShowAnnotated enables printing bytecode interleaved with source
// lines.
func WithShowAnnotated(show bool) Option {
	return func(vm *VirtualMachine) {
		vm.showAnnotated = show
	}
}

// WithArgs exposes an `args` list to the top-level script.
func WithArgs(args []string) Option {
	return func(vm *VirtualMachine) {
		vm.scriptArgs = args
	}
}
