package domain

import (
	"fmt"
	"strings"
)

// AppMatchKind defines how an app entry is compared with process names.
//
// substring - the entry appears anywhere in the process name
// exact     - the entry equals the process name
//
// Both comparisons are case-insensitive.
type AppMatchKind uint8

const (
	// AppMatchSubstring matches any process whose name contains the entry.
	AppMatchSubstring AppMatchKind = iota
	// AppMatchExact matches only a process whose name equals the entry.
	AppMatchExact
)

// exactPrefix marks an exact entry in its serialized form ("=Mail").
const exactPrefix = "="

// String returns a stable string representation of the match kind.
func (k AppMatchKind) String() string {
	switch k {
	case AppMatchSubstring:
		return "substring"
	case AppMatchExact:
		return "exact"
	default:
		return fmt.Sprintf("AppMatchKind(%d)", k)
	}
}

// ParseAppMatchKind converts a string into an AppMatchKind.
// Accepts "substring" or "exact" (case-insensitive); empty means substring.
func ParseAppMatchKind(s string) (AppMatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return AppMatchSubstring, nil
	case "exact":
		return AppMatchExact, nil
	default:
		return 0, fmt.Errorf("unsupported AppMatchKind: %q", s)
	}
}

// AppRule is a single blocked application entry.
type AppRule struct {
	Name string
	Kind AppMatchKind
}

// ParseAppRule decodes the serialized form used in profiles and session
// records: a leading "=" selects exact matching.
func ParseAppRule(raw string) (AppRule, error) {
	s := strings.TrimSpace(raw)
	kind := AppMatchSubstring
	if strings.HasPrefix(s, exactPrefix) {
		kind = AppMatchExact
		s = strings.TrimSpace(strings.TrimPrefix(s, exactPrefix))
	}
	if s == "" {
		return AppRule{}, fmt.Errorf("app name must not be empty (got %q)", raw)
	}
	return AppRule{Name: s, Kind: kind}, nil
}

// String returns the serialized form of the rule.
func (r AppRule) String() string {
	if r.Kind == AppMatchExact {
		return exactPrefix + r.Name
	}
	return r.Name
}

// Key is the case-insensitive identity used for deduplication.
func (r AppRule) Key() string {
	return strings.ToLower(r.String())
}

// Matches reports whether a process with the given name is covered by the rule.
func (r AppRule) Matches(processName string) bool {
	if processName == "" || r.Name == "" {
		return false
	}
	if r.Kind == AppMatchExact {
		return strings.EqualFold(processName, r.Name)
	}
	return strings.Contains(strings.ToLower(processName), strings.ToLower(r.Name))
}

// ParseAppRules decodes a list of serialized rules, failing on the first
// invalid entry.
func ParseAppRules(raw []string) ([]AppRule, error) {
	rules := make([]AppRule, 0, len(raw))
	for _, s := range raw {
		r, err := ParseAppRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
