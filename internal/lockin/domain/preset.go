package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a built-in, read-only bundle of domains and apps under a
// category name.
type Preset struct {
	Name        string
	Description string
	Domains     []string
	Apps        []AppRule
}

// Catalog is the static, versioned mapping of preset name to Preset. It is
// immutable after construction; Lookup hands out copies.
type Catalog struct {
	version int
	presets map[string]Preset
}

// NewCatalog builds a Catalog, rejecting empty or duplicate preset names.
// Preset names are case-insensitive.
func NewCatalog(version int, presets []Preset) (*Catalog, error) {
	c := &Catalog{version: version, presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return nil, Configf("preset with empty name")
		}
		if _, dup := c.presets[key]; dup {
			return nil, Configf("duplicate preset %q", p.Name)
		}
		p.Name = key
		p.Domains = append([]string(nil), p.Domains...)
		p.Apps = append([]AppRule(nil), p.Apps...)
		c.presets[key] = p
	}
	return c, nil
}

// Version identifies the catalog revision.
func (c *Catalog) Version() int { return c.version }

// Lookup returns a copy of the named preset.
func (c *Catalog) Lookup(name string) (Preset, bool) {
	p, ok := c.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	p.Domains = append([]string(nil), p.Domains...)
	p.Apps = append([]AppRule(nil), p.Apps...)
	return p, true
}

// Names returns the preset names in ascending order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for n := range c.presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Presets returns copies of every preset ordered by name.
func (c *Catalog) Presets() []Preset {
	out := make([]Preset, 0, len(c.presets))
	for _, n := range c.Names() {
		p, _ := c.Lookup(n)
		out = append(out, p)
	}
	return out
}

func (p Preset) String() string {
	return fmt.Sprintf("%s (%d domains, %d apps)", p.Name, len(p.Domains), len(p.Apps))
}
