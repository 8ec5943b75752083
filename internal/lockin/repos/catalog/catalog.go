// Package catalog loads the built-in preset catalog. The catalog ships
// inside the binary so that a session's scope cannot be widened or narrowed
// by editing files on disk.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/haukened/lockin/internal/lockin/common/utils"
	"github.com/haukened/lockin/internal/lockin/domain"
)

//go:embed presets.yaml
var builtin []byte

type catalogFile struct {
	Version int          `yaml:"version"`
	Presets []presetFile `yaml:"presets"`
}

type presetFile struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Domains     []string  `yaml:"domains"`
	Apps        []appFile `yaml:"apps"`
}

type appFile struct {
	Name  string `yaml:"name"`
	Match string `yaml:"match"`
}

var (
	builtinOnce sync.Once
	builtinCat  *domain.Catalog
	builtinErr  error
)

// Builtin returns the embedded catalog. It is parsed once per process.
func Builtin() (*domain.Catalog, error) {
	builtinOnce.Do(func() {
		builtinCat, builtinErr = Parse(builtin)
	})
	return builtinCat, builtinErr
}

// Parse decodes a catalog document. Every domain must be a valid host name
// below a registrable domain, and every app entry must have a name and a
// known match kind.
func Parse(data []byte) (*domain.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &domain.ConfigError{Msg: "parsing preset catalog", Err: err}
	}
	if file.Version <= 0 {
		return nil, domain.Configf("preset catalog version must be positive, got %d", file.Version)
	}

	presets := make([]domain.Preset, 0, len(file.Presets))
	for _, pf := range file.Presets {
		p, err := toPreset(pf)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return domain.NewCatalog(file.Version, presets)
}

func toPreset(pf presetFile) (domain.Preset, error) {
	p := domain.Preset{Name: pf.Name, Description: pf.Description}
	for _, raw := range pf.Domains {
		name := utils.NormalizeSite(raw)
		if !utils.IsValidFQDN(name) || !utils.HasRegistrableDomain(name) {
			return domain.Preset{}, domain.Configf("preset %q: invalid domain %q", pf.Name, raw)
		}
		p.Domains = append(p.Domains, name)
	}
	for _, af := range pf.Apps {
		kind, err := domain.ParseAppMatchKind(af.Match)
		if err != nil {
			return domain.Preset{}, &domain.ConfigError{Msg: fmt.Sprintf("preset %q app %q", pf.Name, af.Name), Err: err}
		}
		rule, err := domain.ParseAppRule(af.Name)
		if err != nil {
			return domain.Preset{}, &domain.ConfigError{Msg: fmt.Sprintf("preset %q", pf.Name), Err: err}
		}
		if rule.Kind == domain.AppMatchSubstring {
			rule.Kind = kind
		}
		p.Apps = append(p.Apps, rule)
	}
	return p, nil
}
