package vm

import (
	"errors"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/value"
)

// location reports the source position of the instruction f is currently
// executing, used to stamp every runtime error the VM raises. f.ip has
// already been advanced past this instruction's operands by the time a
// handler runs (so control-flow opcodes can add their jump offset to it
// directly), so this reads f.opIP, the word index latched at dispatch
// time, rather than f.ip.
func location(f *frame) errz.SourceLocation {
	if f == nil || f.chunk == nil {
		return errz.SourceLocation{}
	}
	return f.chunk.LocationAt(f.opIP)
}

// wrapErr annotates a plain Go error as a structured runtime error if it
// isn't already one, then pushes the current frame onto its trail as the
// error unwinds, logging the unwind at debug level.
func (v *VirtualMachine) wrapErr(f *frame, err error) *errz.Error {
	if err == nil {
		return nil
	}
	e, ok := err.(*errz.Error)
	if !ok {
		e = errz.RuntimeErrorf(location(f), "%s", err.Error())
	}
	name := "<script>"
	if f != nil && f.fn != nil && f.fn.Template.Name != "" {
		name = f.fn.Template.Name
	}
	v.logger.Debug().Str("kind", e.Kind.String()).Str("frame", name).Str("at", location(f).String()).Msg("unwind")
	return e.PushFrame(name, location(f))
}

// wrapContainerErr classifies an error returned by a *List/*Map mutating
// method: a re-entrant mutable borrow becomes a BorrowError regardless of
// which operation triggered it, while anything else is reported under
// otherwise's error kind (the kind appropriate to the opcode that called
// in, e.g. UnhashableKeyErrorf for MapInsert).
func (v *VirtualMachine) wrapContainerErr(f *frame, err error, otherwise func(errz.SourceLocation, string, ...any) *errz.Error) *errz.Error {
	if errors.Is(err, value.ErrBorrowed) {
		return v.wrapErr(f, errz.BorrowErrorf(location(f), "%s", err))
	}
	return v.wrapErr(f, otherwise(location(f), "%s", err))
}

func chunkName(c *bytecode.Chunk) string {
	if c == nil {
		return "<script>"
	}
	if c.Name != "" {
		return c.Name
	}
	return "<anonymous>"
}
