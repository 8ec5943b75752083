// Package profiles loads the user's profile file: named profiles and the
// always-blocked list. The file is user-editable and unsigned; nothing read
// from it can shrink an active session, because sessions embed their
// resolved set at creation time.
package profiles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/domain"
)

// keyDelim separates nested keys. Profile names are map keys and may
// contain dots, so the usual "." delimiter would split them.
const keyDelim = "/"

type fileShape struct {
	Profiles      map[string]domain.Profile `koanf:"profiles" validate:"dive,keys,required,endkeys"`
	AlwaysBlocked domain.AlwaysBlocked      `koanf:"always_blocked"`
}

// Repository reads the profile file on every call; there is no cache, so
// edits are visible on the next watchdog cycle.
type Repository struct {
	path     string
	logger   log.Logger
	validate *validator.Validate
}

// New returns a Repository for the file at path. The format is chosen by
// extension: .yaml/.yml, .json or .toml.
func New(path string, logger log.Logger) *Repository {
	return &Repository{
		path:     path,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Path returns the file the repository reads.
func (r *Repository) Path() string { return r.path }

// Load parses the whole file. A missing file is an empty configuration.
func (r *Repository) Load() (domain.UserConfig, error) {
	parser, err := parserFor(r.path)
	if err != nil {
		return domain.UserConfig{}, err
	}

	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug(map[string]any{"path": r.path}, "profiles_file_missing")
		return domain.UserConfig{Profiles: map[string]domain.Profile{}}, nil
	}

	k := koanf.New(keyDelim)
	if err := k.Load(file.Provider(r.path), parser); err != nil {
		return domain.UserConfig{}, &domain.ConfigError{Msg: fmt.Sprintf("loading %s", r.path), Err: err}
	}

	var shape fileShape
	if err := k.UnmarshalWithConf("", &shape, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return domain.UserConfig{}, &domain.ConfigError{Msg: fmt.Sprintf("decoding %s", r.path), Err: err}
	}
	if err := r.validate.Struct(&shape); err != nil {
		return domain.UserConfig{}, &domain.ConfigError{Msg: fmt.Sprintf("validating %s", r.path), Err: err}
	}

	profiles := make(map[string]domain.Profile, len(shape.Profiles))
	for name, p := range shape.Profiles {
		p.Name = name
		profiles[name] = p
	}

	r.logger.Debug(map[string]any{
		"path":         r.path,
		"profiles":     len(profiles),
		"always_sites": len(shape.AlwaysBlocked.Sites),
		"always_apps":  len(shape.AlwaysBlocked.Apps),
	}, "profiles_loaded")

	return domain.UserConfig{Profiles: profiles, AlwaysBlocked: shape.AlwaysBlocked}, nil
}

// AlwaysBlocked returns only the always-blocked section.
func (r *Repository) AlwaysBlocked() (domain.AlwaysBlocked, error) {
	cfg, err := r.Load()
	if err != nil {
		return domain.AlwaysBlocked{}, err
	}
	return cfg.AlwaysBlocked, nil
}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, domain.Configf("unsupported profile file extension %q", filepath.Ext(path))
	}
}
