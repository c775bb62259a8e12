// Package attr implements the typed attribute records shared by zones,
// resource definitions, and resource instances.
package attr

import (
	"fmt"

	"github.com/murphy-project/murphyd/pkg/merr"
)

// Type identifies the Go type backing an attribute value.
type Type string

const (
	TypeString Type = "string"
	TypeBool   Type = "bool"
	TypeInt    Type = "int32"
	TypeUint   Type = "uint32"
	TypeDouble Type = "double"
)

// Def declares one attribute slot: its name, type, and default value.
type Def struct {
	Name    string
	Type    Type
	Default Value
}

// Value holds one attribute value. Only the field matching Type is
// meaningful; the zero Value has an empty Type and matches no declared
// attribute type.
type Value struct {
	Type Type
	Str  string
	Bln  bool
	I32  int32
	U32  uint32
	Dbl  float64
}

func String(s string) Value { return Value{Type: TypeString, Str: s} }
func Bool(b bool) Value     { return Value{Type: TypeBool, Bln: b} }
func Int(i int32) Value     { return Value{Type: TypeInt, I32: i} }
func Uint(u uint32) Value   { return Value{Type: TypeUint, U32: u} }
func Double(d float64) Value {
	return Value{Type: TypeDouble, Dbl: d}
}

// Record is an ordered set of named values validated against a Def list.
type Record struct {
	defs   []Def
	values map[string]Value
}

// NewRecord builds a Record from defs, seeding every slot with its
// default value.
func NewRecord(defs []Def) *Record {
	r := &Record{
		defs:   defs,
		values: make(map[string]Value, len(defs)),
	}
	for _, d := range defs {
		r.values[d.Name] = d.Default
	}
	return r
}

// Set validates name/value against the schema and stores it.
// ErrUnknownName if name isn't declared; ErrTypeMismatch if the value's
// Type doesn't match the declared Type.
func (r *Record) Set(name string, v Value) error {
	def, ok := r.lookup(name)
	if !ok {
		return fmt.Errorf("attr: %w: %q", merr.ErrUnknownName, name)
	}
	if def.Type != v.Type {
		return fmt.Errorf("attr: %w: %q wants %s, got %s", merr.ErrTypeMismatch, name, def.Type, v.Type)
	}
	r.values[name] = v
	return nil
}

// Get returns the current value of name and whether it is declared.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the declared attribute names in schema order.
func (r *Record) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

func (r *Record) lookup(name string) (Def, bool) {
	for _, d := range r.defs {
		if d.Name == name {
			return d, true
		}
	}
	return Def{}, false
}

// Clone returns a deep copy of the record, safe to mutate independently.
func (r *Record) Clone() *Record {
	values := make(map[string]Value, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return &Record{defs: r.defs, values: values}
}
