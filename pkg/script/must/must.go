// Package must implements a trivial script.Interpreter with no
// third-party dependency, registered under the "echo" tag. Its source
// text is just a decimal exit status ("0", "1", ...); Execute parses it
// and returns that status directly. It lets pkg/resolver's tests
// exercise compile/prepare/execute/cleanup wiring and stale-closure
// rollback behaviour without a real Lua chunk; cmd/murphyd also
// registers it alongside the Lua interpreter.
package must

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/murphy-project/murphyd/pkg/script"
)

// Tag is the interpreter name this package registers itself under.
const Tag = "echo"

type compiled struct {
	exitStatus int
}

// handle additionally remembers the last bindings Prepare received, so
// tests can assert on what the resolver actually passed through.
type handle struct {
	compiled
	LastBindings map[string]attr.Value
}

// Interpreter is the "echo" backend: Compile parses its source as a
// plain integer exit status, Execute returns it unchanged.
type Interpreter struct{}

// New creates an echo Interpreter.
func New() *Interpreter { return &Interpreter{} }

func (Interpreter) Compile(source string) (script.Handle, error) {
	status, err := strconv.Atoi(strings.TrimSpace(source))
	if err != nil {
		return nil, fmt.Errorf("must: %w: %v", merr.ErrCompileFailed, err)
	}
	return &handle{compiled: compiled{exitStatus: status}}, nil
}

func (Interpreter) Prepare(h script.Handle, bindings map[string]attr.Value) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("must: %w: not an echo handle", merr.ErrTypeMismatch)
	}
	hd.LastBindings = bindings
	return nil
}

func (Interpreter) Execute(h script.Handle) (int, error) {
	hd, ok := h.(*handle)
	if !ok {
		return 0, fmt.Errorf("must: %w: not an echo handle", merr.ErrTypeMismatch)
	}
	return hd.exitStatus, nil
}

func (Interpreter) Cleanup(h script.Handle) {
	if hd, ok := h.(*handle); ok {
		hd.LastBindings = nil
	}
}
