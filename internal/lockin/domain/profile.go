package domain

import "strings"

// Profile is a user-defined combination of presets and custom entries.
type Profile struct {
	Name        string   `koanf:"name"`
	Presets     []string `koanf:"presets" validate:"dive,required"`
	CustomSites []string `koanf:"custom_sites" validate:"dive,required"`
	BlockedApps []string `koanf:"blocked_apps" validate:"dive,required"`
}

// IsEmpty reports whether the profile names nothing to block.
func (p Profile) IsEmpty() bool {
	return len(p.Presets) == 0 && len(p.CustomSites) == 0 && len(p.BlockedApps) == 0
}

// AlwaysBlocked is the unsigned, user-editable list that stays blocked
// outside of any session.
type AlwaysBlocked struct {
	Sites []string `koanf:"sites" validate:"dive,required"`
	Apps  []string `koanf:"apps" validate:"dive,required"`
}

// UserConfig is everything the profile file declares.
type UserConfig struct {
	Profiles      map[string]Profile
	AlwaysBlocked AlwaysBlocked
}

// Profile returns the named profile; names are case-insensitive.
func (c UserConfig) Profile(name string) (Profile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for n, p := range c.Profiles {
		if strings.ToLower(n) == key {
			if p.Name == "" {
				p.Name = n
			}
			return p, true
		}
	}
	return Profile{}, false
}
