package vm

import (
	"github.com/kotolang/koto/value"
)

// spawnGenerator implements the Generator call variant:
// calling a generator function does not execute its body. Instead it
// creates a child VM seeded with the same chunk and the call's arguments,
// positioned at the function entry, and wraps it in an Iterator that
// resumes the child VM up to its next Yield on each Next() call.
func (v *VirtualMachine) spawnGenerator(fn *value.Function, args []value.Value) (*generatorIterator, error) {
	child := &VirtualMachine{
		logger:         v.logger,
		stackSizeLimit: v.stackSizeLimit,
		callDepthLimit: v.callDepthLimit,
		globals:        v.globals,
	}
	f, err := child.pushFrame(fn.Template, fn, args, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return &generatorIterator{vm: child, target: f}, nil
}

// generatorIterator is the Iterator variant backed by a suspendable child
// VM. It lives in package vm, not
// package value, because resuming it drives a VirtualMachine; it still
// satisfies value.Iterator structurally.
type generatorIterator struct {
	vm     *VirtualMachine
	target *frame
	done   bool
}

func (g *generatorIterator) Type() value.Type { return value.TypeIterator }
func (g *generatorIterator) String() string   { return "iterator(generator)" }
func (g *generatorIterator) IsTruthy() bool   { return true }

// Next resumes the child VM until it yields again or returns, mapping the
// outcome onto the Iterator output contract.
func (g *generatorIterator) Next() value.IterResult {
	if g.done {
		return value.IterResult{Outcome: value.IterDone}
	}
	g.vm.logger.Debug().Str("chunk", chunkName(g.target.chunk)).Msg("generator resume")
	outcome, val, err := g.vm.run(g.target)
	if err != nil {
		g.done = true
		g.vm.logger.Debug().Str("chunk", chunkName(g.target.chunk)).Err(err).Msg("generator error")
		return value.IterResult{Outcome: value.IterError, Err: err}
	}
	if outcome == runReturned {
		g.done = true
		g.vm.logger.Debug().Str("chunk", chunkName(g.target.chunk)).Msg("generator done")
		return value.IterResult{Outcome: value.IterDone}
	}
	g.vm.logger.Debug().Str("chunk", chunkName(g.target.chunk)).Msg("generator suspend")
	return value.IterResult{Outcome: value.IterValue, Val: val}
}

// DeepCopy clones the generator's entire VM state — register file and
// frame stack — producing an independent snapshot that can be advanced
// without affecting the original.
func (g *generatorIterator) DeepCopy() value.Iterator {
	if g.done {
		return &generatorIterator{vm: g.vm, target: g.target, done: true}
	}

	clonedRegisters := make([]value.Value, len(g.vm.registers))
	for i, r := range g.vm.registers {
		clonedRegisters[i] = value.DeepCopy(r)
	}
	clonedFrames := make([]*frame, len(g.vm.frames))
	var clonedTarget *frame
	for i, f := range g.vm.frames {
		cp := *f
		clonedFrames[i] = &cp
		if f == g.target {
			clonedTarget = &cp
		}
	}

	clone := &VirtualMachine{
		logger:         g.vm.logger,
		stackSizeLimit: g.vm.stackSizeLimit,
		callDepthLimit: g.vm.callDepthLimit,
		globals:        g.vm.globals,
		registers:      clonedRegisters,
		frames:         clonedFrames,
	}
	return &generatorIterator{vm: clone, target: clonedTarget}
}

var _ value.Iterator = (*generatorIterator)(nil)
