// Package config loads the small YAML document cmd/murphyd's demo
// harness uses to seed a registry.Registry at startup: the zone,
// resource-definition, and class catalogue an embedding daemon would
// otherwise build from its own configuration file (out of scope per
// spec.md §1 — this package only covers this repository's own demo
// entrypoint, not a general daemon config format).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/registry"
)

// AttrDef mirrors attr.Def in a YAML-friendly shape: Default is parsed
// according to Type, since YAML itself only distinguishes scalar kinds,
// not this package's string/bool/int32/uint32/double vocabulary.
type AttrDef struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default string `yaml:"default"`
}

// ZoneConfig declares one zone and its attribute schema.
type ZoneConfig struct {
	Name  string    `yaml:"name"`
	Attrs []AttrDef `yaml:"attrs"`
}

// ResourceDefConfig declares one resource definition.
type ResourceDefConfig struct {
	Name      string    `yaml:"name"`
	Shareable bool      `yaml:"shareable"`
	Attrs     []AttrDef `yaml:"attrs"`
}

// ClassConfig declares one priority class.
type ClassConfig struct {
	Name     string `yaml:"name"`
	Priority uint32 `yaml:"priority"`
}

// Demo is the top-level document shape: a flat startup catalogue, linked
// once into a sealed registry.Registry the same way registry.New's
// caller would build one by hand.
type Demo struct {
	Zones        []ZoneConfig        `yaml:"zones"`
	ResourceDefs []ResourceDefConfig `yaml:"resource_defs"`
	Classes      []ClassConfig       `yaml:"classes"`
}

// Load parses a Demo document from path.
func Load(path string) (*Demo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var d Demo
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &d, nil
}

// Apply creates every declared zone, resource definition, and class on
// reg, in document order, and seals it. reg must be freshly constructed
// (registry.New) and not already sealed.
func (d *Demo) Apply(reg *registry.Registry) error {
	for _, z := range d.Zones {
		defs, err := attrDefs(z.Attrs)
		if err != nil {
			return fmt.Errorf("config: zone %q: %w", z.Name, err)
		}
		if _, err := reg.CreateZone(z.Name, defs); err != nil {
			return fmt.Errorf("config: zone %q: %w", z.Name, err)
		}
	}
	for _, rd := range d.ResourceDefs {
		defs, err := attrDefs(rd.Attrs)
		if err != nil {
			return fmt.Errorf("config: resource %q: %w", rd.Name, err)
		}
		if _, err := reg.CreateResourceDef(rd.Name, rd.Shareable, defs); err != nil {
			return fmt.Errorf("config: resource %q: %w", rd.Name, err)
		}
	}
	for _, c := range d.Classes {
		if _, err := reg.CreateClass(c.Name, c.Priority); err != nil {
			return fmt.Errorf("config: class %q: %w", c.Name, err)
		}
	}
	reg.Seal()
	return nil
}

func attrDefs(in []AttrDef) ([]attr.Def, error) {
	out := make([]attr.Def, 0, len(in))
	for _, a := range in {
		v, err := parseDefault(attr.Type(a.Type), a.Default)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		out = append(out, attr.Def{Name: a.Name, Type: attr.Type(a.Type), Default: v})
	}
	return out, nil
}

func parseDefault(t attr.Type, s string) (attr.Value, error) {
	switch t {
	case attr.TypeString:
		return attr.String(s), nil
	case attr.TypeBool:
		return attr.Bool(s == "true"), nil
	case attr.TypeInt:
		var i int32
		if s != "" {
			if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
				return attr.Value{}, err
			}
		}
		return attr.Int(i), nil
	case attr.TypeUint:
		var u uint32
		if s != "" {
			if _, err := fmt.Sscanf(s, "%d", &u); err != nil {
				return attr.Value{}, err
			}
		}
		return attr.Uint(u), nil
	case attr.TypeDouble:
		var f float64
		if s != "" {
			if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
				return attr.Value{}, err
			}
		}
		return attr.Double(f), nil
	default:
		return attr.Value{}, fmt.Errorf("unknown attribute type %q", t)
	}
}
