package hosts

import (
	"fmt"
	"strings"

	"github.com/haukened/lockin/internal/lockin/gateways/hosts/bloom"
)

const shadowFPRate = 0.01

// FindShadows returns foreign entries that map a blocked domain to a
// routable address. Most foreign lines name nothing lockin blocks, so a
// Bloom filter over blocked rejects them before the exact lookup.
func FindShadows(foreign []string, blocked []string) []Shadow {
	if len(blocked) == 0 {
		return nil
	}
	filter := bloom.FromStrings(blocked, shadowFPRate)
	exact := make(map[string]struct{}, len(blocked))
	for _, d := range blocked {
		exact[d] = struct{}{}
	}

	var out []Shadow
	for _, e := range foreignEntries(foreign) {
		if blocking(e.address) {
			continue
		}
		for _, name := range e.names {
			if !filter.MightContain(name) {
				continue
			}
			if _, ok := exact[name]; ok {
				out = append(out, Shadow{Line: e.line, Address: e.address, Name: name})
			}
		}
	}
	return out
}

// ShadowError lists the shadowing entries found in one pass.
type ShadowError struct {
	Shadows []Shadow
}

func (e *ShadowError) Error() string {
	parts := make([]string, 0, len(e.Shadows))
	for _, s := range e.Shadows {
		parts = append(parts, fmt.Sprintf("line %d maps %s to %s", s.Line, s.Name, s.Address))
	}
	return "hosts entries override blocked domains: " + strings.Join(parts, "; ")
}
