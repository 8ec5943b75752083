package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile, when set, receives a copy of every log entry.
	LogFile string `koanf:"log_file" validate:"omitempty,abs_path"`

	// SessionFile is the signed session record. Its directory must be
	// writable by root only.
	SessionFile string `koanf:"session_file" validate:"required,abs_path"`

	// StateDB holds the watchdog cycle counter.
	StateDB string `koanf:"state_db" validate:"required,abs_path"`

	HostsFile string `koanf:"hosts_file" validate:"required,abs_path"`

	// ProfilesFile is the user's profile definitions (.yaml, .json or .toml).
	ProfilesFile string `koanf:"profiles_file" validate:"required,abs_path"`

	// Interval is the watchdog cycle period.
	Interval time.Duration `koanf:"interval" validate:"gte=1s,lte=1m"`

	// StepTimeout bounds each enforcement step within a cycle.
	StepTimeout time.Duration `koanf:"step_timeout" validate:"gte=100ms,ltefield=Interval"`

	// GraceWindow is how long a terminated process may take to exit.
	GraceWindow time.Duration `koanf:"grace_window" validate:"gte=0,ltfield=StepTimeout"`

	// MatchCacheSize sizes the process-name match cache; 0 disables it.
	MatchCacheSize int `koanf:"match_cache_size" validate:"gte=0"`

	// MachineIDFiles overrides where the hardware identifier is read from
	// on Linux.
	MachineIDFiles []string `koanf:"machine_id_files" validate:"dive,abs_path"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:            "prod",
	LogLevel:       "info",
	LogFile:        "",
	SessionFile:    "/var/lockin/session.json",
	StateDB:        "/var/lockin/cycles.db",
	HostsFile:      "/etc/hosts",
	ProfilesFile:   "/etc/lockin/profiles.yaml",
	Interval:       3 * time.Second,
	StepTimeout:    2 * time.Second,
	GraceWindow:    500 * time.Millisecond,
	MatchCacheSize: 1024,
	MachineIDFiles: []string{},
}

// validAbsPath accepts absolute, already-clean file paths.
func validAbsPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	return filepath.IsAbs(p) && filepath.Clean(p) == p
}

// envLoader loads environment variables with the prefix "LOCKIN_",
// lowercasing keys and splitting list values on spaces or commas.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "LOCKIN_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "LOCKIN_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if key == "machine_id_files" {
				return key, strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "abs_path" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("abs_path", validAbsPath)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
