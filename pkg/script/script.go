// Package script defines the small capability interface pkg/resolver
// drives compiled target scripts through. It knows nothing about Lua,
// facts, or targets — it is just a registry from interpreter tag to
// vtable, the same "register a named backend, look it up by tag" shape
// the rest of this codebase uses for pluggable components.
package script

import (
	"fmt"
	"sync"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// Handle is an opaque compiled script, owned by whichever Interpreter
// produced it. Callers never inspect it; they only pass it back in.
type Handle any

// Interpreter is the compile/prepare/execute/cleanup capability every
// scripting backend implements.
type Interpreter interface {
	// Compile parses source once and returns a reusable handle.
	// ErrCompileFailed on a syntax error.
	Compile(source string) (Handle, error)

	// Prepare binds the context variable snapshot into the script's
	// execution environment ahead of a call to Execute.
	Prepare(h Handle, bindings map[string]attr.Value) error

	// Execute runs the compiled script and returns its integer exit
	// status (0 means success, matching the original interpreter
	// contract). ErrScriptFailed wraps any runtime error.
	Execute(h Handle) (exitStatus int, err error)

	// Cleanup releases any per-execution state. It is safe to call
	// Execute again on the same handle afterward; Cleanup never
	// invalidates the compiled chunk itself.
	Cleanup(h Handle)
}

// Registry maps an interpreter tag (as named in a rule file's
// script TAG "..." clause) to its Interpreter implementation.
type Registry struct {
	mu           sync.RWMutex
	interpreters map[string]Interpreter
}

// NewRegistry creates an empty interpreter registry.
func NewRegistry() *Registry {
	return &Registry{interpreters: make(map[string]Interpreter)}
}

// Register adds an interpreter under tag. ErrNameCollision if tag is
// already registered.
func (r *Registry) Register(tag string, interp Interpreter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.interpreters[tag]; exists {
		return fmt.Errorf("script: %w: interpreter %q", merr.ErrNameCollision, tag)
	}
	r.interpreters[tag] = interp
	return nil
}

// Unregister removes a previously registered interpreter. A no-op if
// tag was never registered.
func (r *Registry) Unregister(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.interpreters, tag)
}

// Get looks up an interpreter by tag.
func (r *Registry) Get(tag string) (Interpreter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.interpreters[tag]
	return i, ok
}
