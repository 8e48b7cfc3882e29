package value

import (
	"fmt"

	"github.com/kotolang/koto/bytecode"
)

// Function is the runtime value backing simple functions, full closures,
// and generators alike. Go doesn't need the C-style union size
// discipline those would otherwise need (see DESIGN.md); a single
// struct keyed off its Template's flags covers all three: a plain
// function is a Function with no captures and no variadic/unpack flags,
// and a generator is a Function whose Template marks Generator true
// (its Call does not run the body — see package vm's call protocol).
type Function struct {
	Template *bytecode.FunctionTemplate
	Captures *List // nil when the function captures nothing
}

func NewFunction(tmpl *bytecode.FunctionTemplate, captures *List) *Function {
	return &Function{Template: tmpl, Captures: captures}
}

func (f *Function) Type() Type {
	return TypeFunction
}

func (f *Function) String() string {
	name := f.Template.Name
	if name == "" {
		name = "<anonymous>"
	}
	kind := "function"
	if f.Template.Generator {
		kind = "generator"
	}
	return fmt.Sprintf("%s(%s)", kind, name)
}

func (f *Function) IsTruthy() bool { return true }

// Arity implements Callable.
func (f *Function) Arity() (int, bool) {
	return f.Template.ArgCount, f.Template.Variadic
}

func (f *Function) IsGenerator() bool {
	return f.Template.Generator
}

// ExternalFunc is the Go function signature a host implements to expose a
// native callable to scripts. The VM parameter lets host code itself
// perform calls back into the script.
type ExternalFunc func(vm VMHandle, args []Value) (Value, error)

// VMHandle is the subset of the VM's capabilities package value can see
// without importing package vm (which imports package value). Package vm
// satisfies this interface.
type VMHandle interface {
	Call(fn Value, args []Value) (Value, error)
}

// ExternalFunction wraps a host-supplied Go callable.
type ExternalFunction struct {
	Name string
	Fn   ExternalFunc
	// MinArgs/Variadic describe the external function's arity for the
	// Arity() method; external functions are otherwise not arity-checked
	// by the VM itself (the host function validates its own arguments).
	MinArgs  int
	Variadic bool
}

func NewExternalFunction(name string, fn ExternalFunc) *ExternalFunction {
	return &ExternalFunction{Name: name, Fn: fn, Variadic: true}
}

func (f *ExternalFunction) Type() Type     { return TypeExternalFunction }
func (f *ExternalFunction) String() string { return fmt.Sprintf("external_function(%s)", f.Name) }
func (f *ExternalFunction) IsTruthy() bool { return true }
func (f *ExternalFunction) Arity() (int, bool) {
	return f.MinArgs, f.Variadic
}

func (f *ExternalFunction) Call(vm VMHandle, args []Value) (Value, error) {
	return f.Fn(vm, args)
}
