package resolver

import (
	"fmt"

	"github.com/murphy-project/murphyd/pkg/merr"
)

// ScriptFailedError reports a target's update script returning a
// non-zero exit status or failing outright during execution.
type ScriptFailedError struct {
	Target     string
	ExitStatus int
	Err        error
}

func (e *ScriptFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolver: %s: target %q: %v", merr.ErrScriptFailed, e.Target, e.Err)
	}
	return fmt.Sprintf("resolver: %s: target %q exited %d", merr.ErrScriptFailed, e.Target, e.ExitStatus)
}

// Unwrap exposes the underlying cause (e.g. a *ReentrancyError from a
// nested UpdateTarget call) so errors.As can still reach it; Is below
// keeps errors.Is(err, merr.ErrScriptFailed) true regardless.
func (e *ScriptFailedError) Unwrap() error { return e.Err }

func (e *ScriptFailedError) Is(target error) bool { return target == merr.ErrScriptFailed }

// ReentrancyError reports a script attempting to re-enter UpdateTarget
// for a target that is already executing somewhere on the current call
// stack, directly or through another target in the same closure.
type ReentrancyError struct {
	Target string
}

func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("resolver: %s: target %q", merr.ErrReentrancy, e.Target)
}

func (e *ReentrancyError) Unwrap() error { return merr.ErrReentrancy }
