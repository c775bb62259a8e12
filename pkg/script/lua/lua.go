// Package lua implements script.Interpreter with github.com/yuin/gopher-lua,
// registered under the "lua" tag. It is the Go-idiomatic equivalent of the
// original daemon's embedded Lua binding: Compile loads a chunk once,
// Prepare binds the context snapshot into Lua globals, Execute calls the
// chunk and reads back an integer exit status, and Cleanup is a no-op —
// the compiled state outlives any one Execute call, the same
// idempotent-cleanup contract the original object bindings had.
package lua

import (
	"fmt"

	luaState "github.com/yuin/gopher-lua"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/murphy-project/murphyd/pkg/script"
)

// Tag is the interpreter name this package registers itself under.
const Tag = "lua"

type handle struct {
	state *luaState.LState
	fn    *luaState.LFunction
}

// Interpreter is the gopher-lua backed script.Interpreter.
type Interpreter struct{}

// New creates a Lua Interpreter.
func New() *Interpreter { return &Interpreter{} }

// Compile parses source as a Lua chunk expected to return a single
// integer exit status. ErrCompileFailed on a syntax error.
func (Interpreter) Compile(source string) (script.Handle, error) {
	state := luaState.NewState()
	fn, err := state.LoadString(source)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("lua: %w: %v", merr.ErrCompileFailed, err)
	}
	return &handle{state: state, fn: fn}, nil
}

// Prepare binds bindings into the script's global environment.
func (Interpreter) Prepare(h script.Handle, bindings map[string]attr.Value) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("lua: %w: not a lua handle", merr.ErrTypeMismatch)
	}
	for name, v := range bindings {
		lv, err := toLua(v)
		if err != nil {
			return fmt.Errorf("lua: %w", err)
		}
		hd.state.SetGlobal(name, lv)
	}
	return nil
}

// Execute calls the compiled chunk and returns its single integer
// return value as the exit status. ErrScriptFailed wraps a Lua runtime
// error or a non-integer return value.
func (Interpreter) Execute(h script.Handle) (int, error) {
	hd, ok := h.(*handle)
	if !ok {
		return 0, fmt.Errorf("lua: %w: not a lua handle", merr.ErrTypeMismatch)
	}

	hd.state.Push(hd.fn)
	if err := hd.state.PCall(0, 1, nil); err != nil {
		return 0, fmt.Errorf("lua: %w: %v", merr.ErrScriptFailed, err)
	}

	ret := hd.state.Get(-1)
	hd.state.Pop(1)
	status, ok := ret.(luaState.LNumber)
	if !ok || float64(status) != float64(int(status)) {
		return 0, fmt.Errorf("lua: %w: script must return an integer exit status, got %s", merr.ErrScriptFailed, ret.Type())
	}
	return int(status), nil
}

// Cleanup is a no-op: the compiled state belongs to Compile, and the
// same handle may be Executed again afterward.
func (Interpreter) Cleanup(script.Handle) {}

// Close releases the Lua state backing h. Unlike Cleanup, this
// invalidates h for any further Execute calls; callers should only call
// it once a target is torn down for good.
func Close(h script.Handle) {
	if hd, ok := h.(*handle); ok {
		hd.state.Close()
	}
}

func toLua(v attr.Value) (luaState.LValue, error) {
	switch v.Type {
	case attr.TypeString:
		return luaState.LString(v.Str), nil
	case attr.TypeBool:
		return luaState.LBool(v.Bln), nil
	case attr.TypeInt:
		return luaState.LNumber(v.I32), nil
	case attr.TypeUint:
		return luaState.LNumber(v.U32), nil
	case attr.TypeDouble:
		return luaState.LNumber(v.Dbl), nil
	default:
		return nil, fmt.Errorf("%w: unhandled attribute type %q", merr.ErrTypeMismatch, v.Type)
	}
}
