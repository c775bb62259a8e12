package resolver

import (
	"fmt"
	"sync"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// VarType is a context variable's declared type. It is a superset of
// attr.Type's vocabulary — the original context table distinguishes
// integer widths (u8/s8/u16/s16/u32/s32/u64/s64) that pkg/attr collapses
// to a single signed/unsigned 32-bit pair; the declared width is checked
// against a value's type tag on Set, and the value itself is stored
// widened.
type VarType string

const (
	VarString VarType = "string"
	VarBool   VarType = "bool"
	VarU8     VarType = "u8"
	VarS8     VarType = "s8"
	VarU16    VarType = "u16"
	VarS16    VarType = "s16"
	VarU32    VarType = "u32"
	VarS32    VarType = "s32"
	VarU64    VarType = "u64"
	VarS64    VarType = "s64"
	VarDouble VarType = "double"
)

// Value holds one context variable's value, tagged with its declared
// width. Only the field matching Type is meaningful.
type Value struct {
	Type VarType
	Str  string
	Bln  bool
	I64  int64
	U64  uint64
	Dbl  float64
}

func VString(s string) Value  { return Value{Type: VarString, Str: s} }
func VBool(b bool) Value      { return Value{Type: VarBool, Bln: b} }
func VU8(v uint8) Value       { return Value{Type: VarU8, U64: uint64(v)} }
func VS8(v int8) Value        { return Value{Type: VarS8, I64: int64(v)} }
func VU16(v uint16) Value     { return Value{Type: VarU16, U64: uint64(v)} }
func VS16(v int16) Value      { return Value{Type: VarS16, I64: int64(v)} }
func VU32(v uint32) Value     { return Value{Type: VarU32, U64: uint64(v)} }
func VS32(v int32) Value      { return Value{Type: VarS32, I64: int64(v)} }
func VU64(v uint64) Value     { return Value{Type: VarU64, U64: v} }
func VS64(v int64) Value      { return Value{Type: VarS64, I64: v} }
func VDouble(v float64) Value { return Value{Type: VarDouble, Dbl: v} }

// toAttr narrows a context Value down to the coarser attr.Value
// vocabulary pkg/script.Interpreter.Prepare consumes.
func (v Value) toAttr() attr.Value {
	switch v.Type {
	case VarString:
		return attr.String(v.Str)
	case VarBool:
		return attr.Bool(v.Bln)
	case VarU8, VarU16, VarU32, VarU64:
		return attr.Uint(uint32(v.U64))
	case VarS8, VarS16, VarS32, VarS64:
		return attr.Int(int32(v.I64))
	case VarDouble:
		return attr.Double(v.Dbl)
	default:
		return attr.Value{}
	}
}

// MustBindings builds a name/Value map from a flat name, value, name,
// value... argument list — the Go-idiomatic replacement for the
// original C varargs convenience wrapper. It panics on a malformed call,
// matching the "Must" helper convention used elsewhere for build-time
// assertions rather than runtime error handling.
func MustBindings(pairs ...any) map[string]Value {
	if len(pairs)%2 != 0 {
		panic("resolver: MustBindings requires an even number of name/value arguments")
	}
	out := make(map[string]Value, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic("resolver: MustBindings expects a string name")
		}
		v, ok := pairs[i+1].(Value)
		if !ok {
			panic("resolver: MustBindings expects a resolver.Value")
		}
		out[name] = v
	}
	return out
}

// ContextTable is the scoped symbol table context variables live in.
// Variables are declared once with a fixed type; PushFrame/PopFrame
// scope assignments the way update_target's implicit call frame does.
type ContextTable struct {
	mu       sync.Mutex
	declared map[string]VarType
	frames   []map[string]Value
}

// NewContextTable creates a table with just the base frame.
func NewContextTable() *ContextTable {
	return &ContextTable{
		declared: make(map[string]VarType),
		frames:   []map[string]Value{make(map[string]Value)},
	}
}

// Declare registers name with type t. Declaring the same name with the
// same type again is a no-op; declaring it with a different type fails
// with ErrTypeMismatch.
func (c *ContextTable) Declare(name string, t VarType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.declared[name]; ok {
		if existing != t {
			return fmt.Errorf("resolver: %w: %q already declared as %s", merr.ErrTypeMismatch, name, existing)
		}
		return nil
	}
	c.declared[name] = t
	return nil
}

// PushFrame opens a new assignment scope.
func (c *ContextTable) PushFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, make(map[string]Value))
}

// PopFrame discards the innermost scope. Popping the base frame is a
// programming error and panics, the same way discarding the bottom of
// any other explicit stack would be.
func (c *ContextTable) PopFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 1 {
		panic("resolver: PopFrame called with no pushed frame")
	}
	c.frames = c.frames[:len(c.frames)-1]
}

// Set assigns name in the innermost frame. ErrUnknownName if name was
// never declared; ErrTypeMismatch if v's type doesn't match the
// declaration.
func (c *ContextTable) Set(name string, v Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.declared[name]
	if !ok {
		return fmt.Errorf("resolver: %w: %q", merr.ErrUnknownName, name)
	}
	if t != v.Type {
		return fmt.Errorf("resolver: %w: %q wants %s, got %s", merr.ErrTypeMismatch, name, t, v.Type)
	}
	c.frames[len(c.frames)-1][name] = v
	return nil
}

// Get resolves name from the innermost frame outward.
func (c *ContextTable) Get(name string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Bindings flattens every visible frame (outermost to innermost, so
// inner assignments shadow outer ones) into the attr.Value vocabulary
// pkg/script.Interpreter.Prepare expects.
func (c *ContextTable) Bindings() map[string]attr.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]attr.Value)
	for _, frame := range c.frames {
		for name, v := range frame {
			out[name] = v.toAttr()
		}
	}
	return out
}
