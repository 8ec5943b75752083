package domain

import (
	"slices"
	"sort"
	"strings"
)

// BlockSet is the Resolved Block Set: the concrete domains and app entries
// a session enforces. Domains are canonical host names in ascending order;
// Apps are serialized AppRules ordered by their case-insensitive key. Both
// lists are duplicate-free. Construct through NewBlockSet to get that shape.
type BlockSet struct {
	Domains []string
	Apps    []string
}

// NewBlockSet normalizes domains and apps into canonical order.
// Domains are lowercased; apps are deduplicated case-insensitively keeping
// the first spelling seen.
func NewBlockSet(domains, apps []string) BlockSet {
	return BlockSet{
		Domains: sortedDomains(domains),
		Apps:    sortedApps(apps),
	}
}

// IsEmpty reports whether the set blocks nothing.
func (b BlockSet) IsEmpty() bool {
	return len(b.Domains) == 0 && len(b.Apps) == 0
}

// Equal reports element-wise equality, order included.
func (b BlockSet) Equal(other BlockSet) bool {
	return slices.Equal(b.Domains, other.Domains) && slices.Equal(b.Apps, other.Apps)
}

// Union merges two sets into a new canonical set.
func (b BlockSet) Union(other BlockSet) BlockSet {
	domains := make([]string, 0, len(b.Domains)+len(other.Domains))
	domains = append(append(domains, b.Domains...), other.Domains...)
	apps := make([]string, 0, len(b.Apps)+len(other.Apps))
	apps = append(append(apps, b.Apps...), other.Apps...)
	return NewBlockSet(domains, apps)
}

// AppRules decodes the app entries. Entries that fail to decode are skipped;
// a BlockSet built by the resolver never holds one.
func (b BlockSet) AppRules() []AppRule {
	out := make([]AppRule, 0, len(b.Apps))
	for _, raw := range b.Apps {
		if r, err := ParseAppRule(raw); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func sortedDomains(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func sortedApps(in []string) []string {
	type entry struct{ key, val string }
	seen := make(map[string]struct{}, len(in))
	entries := make([]entry, 0, len(in))
	for _, raw := range in {
		r, err := ParseAppRule(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		entries = append(entries, entry{key: r.Key(), val: r.String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.val
	}
	return out
}

// SubtractDomains returns the domains of from that are not in remove.
func SubtractDomains(from, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, d := range remove {
		drop[strings.ToLower(d)] = struct{}{}
	}
	out := make([]string, 0, len(from))
	for _, d := range from {
		if _, ok := drop[strings.ToLower(d)]; !ok {
			out = append(out, d)
		}
	}
	return sortedDomains(out)
}
