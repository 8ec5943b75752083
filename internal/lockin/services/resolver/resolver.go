// Package resolver turns profiles into Resolved Block Sets. Resolution is
// pure: the same profile and catalog always produce the same set.
package resolver

import (
	"fmt"

	"github.com/haukened/lockin/internal/lockin/common/utils"
	"github.com/haukened/lockin/internal/lockin/domain"
)

// SubdomainPrefixes are prepended to every preset and custom domain.
var SubdomainPrefixes = []string{"", "www.", "m.", "api.", "mobile.", "app."}

// Resolver expands profiles against a preset catalog.
type Resolver struct {
	catalog *domain.Catalog
}

// New returns a Resolver over catalog.
func New(catalog *domain.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve expands every preset and custom entry of p. An unknown preset or a
// malformed custom entry fails the whole resolution with a ConfigError.
func (r *Resolver) Resolve(p domain.Profile) (domain.BlockSet, error) {
	var domains, apps []string
	for _, name := range p.Presets {
		preset, ok := r.catalog.Lookup(name)
		if !ok {
			return domain.BlockSet{}, domain.Configf("profile %q: unknown preset %q", p.Name, name)
		}
		domains = append(domains, ExpandDomains(preset.Domains)...)
		for _, app := range preset.Apps {
			apps = append(apps, app.String())
		}
	}

	sites, err := normalizeSites(p.CustomSites)
	if err != nil {
		return domain.BlockSet{}, &domain.ConfigError{Msg: fmt.Sprintf("profile %q", p.Name), Err: err}
	}
	domains = append(domains, ExpandDomains(sites)...)

	rules, err := domain.ParseAppRules(p.BlockedApps)
	if err != nil {
		return domain.BlockSet{}, &domain.ConfigError{Msg: fmt.Sprintf("profile %q", p.Name), Err: err}
	}
	for _, rule := range rules {
		apps = append(apps, rule.String())
	}
	return domain.NewBlockSet(domains, apps), nil
}

// ResolveAlways expands the always-blocked list the same way custom entries
// of a profile are expanded.
func (r *Resolver) ResolveAlways(a domain.AlwaysBlocked) (domain.BlockSet, error) {
	sites, err := normalizeSites(a.Sites)
	if err != nil {
		return domain.BlockSet{}, &domain.ConfigError{Msg: "always_blocked", Err: err}
	}
	rules, err := domain.ParseAppRules(a.Apps)
	if err != nil {
		return domain.BlockSet{}, &domain.ConfigError{Msg: "always_blocked", Err: err}
	}
	apps := make([]string, 0, len(rules))
	for _, rule := range rules {
		apps = append(apps, rule.String())
	}
	return domain.NewBlockSet(ExpandDomains(sites), apps), nil
}

// ExpandDomains returns each domain with every subdomain prefix applied.
// Variants that would not be valid host names are dropped.
func ExpandDomains(domains []string) []string {
	out := make([]string, 0, len(domains)*len(SubdomainPrefixes))
	for _, d := range domains {
		for _, prefix := range SubdomainPrefixes {
			if name := prefix + d; utils.IsValidFQDN(name) {
				out = append(out, name)
			}
		}
	}
	return out
}

func normalizeSites(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		name := utils.NormalizeSite(s)
		if !utils.IsValidFQDN(name) || !utils.HasRegistrableDomain(name) {
			return nil, fmt.Errorf("invalid site %q", s)
		}
		out = append(out, name)
	}
	return out, nil
}
