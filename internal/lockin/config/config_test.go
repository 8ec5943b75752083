package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, "/var/lockin/session.json", cfg.SessionFile)
	assert.Equal(t, "/var/lockin/cycles.db", cfg.StateDB)
	assert.Equal(t, "/etc/hosts", cfg.HostsFile)
	assert.Equal(t, "/etc/lockin/profiles.yaml", cfg.ProfilesFile)
	assert.Equal(t, 3*time.Second, cfg.Interval)
	assert.Equal(t, 2*time.Second, cfg.StepTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.GraceWindow)
	assert.Equal(t, 1024, cfg.MatchCacheSize)
	assert.Empty(t, cfg.MachineIDFiles)
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("LOCKIN_ENV", "dev")
	t.Setenv("LOCKIN_LOG_LEVEL", "debug")
	t.Setenv("LOCKIN_LOG_FILE", "/var/log/lockin.log")
	t.Setenv("LOCKIN_SESSION_FILE", "/tmp/lockin/session.json")
	t.Setenv("LOCKIN_STATE_DB", "/tmp/lockin/cycles.db")
	t.Setenv("LOCKIN_HOSTS_FILE", "/tmp/hosts")
	t.Setenv("LOCKIN_PROFILES_FILE", "/home/me/.config/lockin/profiles.toml")
	t.Setenv("LOCKIN_INTERVAL", "5s")
	t.Setenv("LOCKIN_STEP_TIMEOUT", "4s")
	t.Setenv("LOCKIN_GRACE_WINDOW", "1s")
	t.Setenv("LOCKIN_MATCH_CACHE_SIZE", "0")
	t.Setenv("LOCKIN_MACHINE_ID_FILES", "/etc/machine-id, /sys/class/dmi/id/product_uuid")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/log/lockin.log", cfg.LogFile)
	assert.Equal(t, "/tmp/lockin/session.json", cfg.SessionFile)
	assert.Equal(t, "/tmp/lockin/cycles.db", cfg.StateDB)
	assert.Equal(t, "/tmp/hosts", cfg.HostsFile)
	assert.Equal(t, "/home/me/.config/lockin/profiles.toml", cfg.ProfilesFile)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 4*time.Second, cfg.StepTimeout)
	assert.Equal(t, time.Second, cfg.GraceWindow)
	assert.Equal(t, 0, cfg.MatchCacheSize)
	assert.Equal(t, []string{"/etc/machine-id", "/sys/class/dmi/id/product_uuid"}, cfg.MachineIDFiles)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"env", map[string]string{"LOCKIN_ENV": "staging"}},
		{"log level", map[string]string{"LOCKIN_LOG_LEVEL": "trace"}},
		{"relative log file", map[string]string{"LOCKIN_LOG_FILE": "lockin.log"}},
		{"relative session file", map[string]string{"LOCKIN_SESSION_FILE": "session.json"}},
		{"unclean hosts path", map[string]string{"LOCKIN_HOSTS_FILE": "/etc/../etc/hosts"}},
		{"empty state db", map[string]string{"LOCKIN_STATE_DB": ""}},
		{"interval too short", map[string]string{"LOCKIN_INTERVAL": "100ms", "LOCKIN_STEP_TIMEOUT": "100ms", "LOCKIN_GRACE_WINDOW": "0s"}},
		{"interval not a duration", map[string]string{"LOCKIN_INTERVAL": "often"}},
		{"step timeout beyond interval", map[string]string{"LOCKIN_STEP_TIMEOUT": "10s"}},
		{"grace beyond step timeout", map[string]string{"LOCKIN_GRACE_WINDOW": "2s"}},
		{"negative cache", map[string]string{"LOCKIN_MATCH_CACHE_SIZE": "-1"}},
		{"relative machine id file", map[string]string{"LOCKIN_MACHINE_ID_FILES": "machine-id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_WhenKoanfDefaultLoadFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { defaultLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading defaults")
	}
}

func TestLoad_WhenKoanfEnvLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading env")
	}
}

func TestLoad_RegisterValidationFails(t *testing.T) {
	orig := registerValidation
	registerValidation = func(v *validator.Validate) error { return errors.New("mocked validation error") }
	defer func() { registerValidation = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked validation error") {
		t.Fatal("expected error when registering validation")
	}
}

func TestValidAbsPath(t *testing.T) {
	cases := []struct {
		input    string
		expected bool
	}{
		{"/etc/hosts", true},
		{"/var/lockin/session.json", true},
		{"/", true},
		{"etc/hosts", false},
		{"./hosts", false},
		{"/etc//hosts", false},
		{"/etc/hosts/", false},
		{"", false},
	}

	validate := validator.New()
	_ = validate.RegisterValidation("abs_path", validAbsPath)

	for _, tc := range cases {
		type S struct {
			Path string `validate:"abs_path"`
		}
		err := validate.Struct(S{Path: tc.input})
		if tc.expected && err != nil {
			t.Errorf("validAbsPath(%q) = false, want true", tc.input)
		}
		if !tc.expected && err == nil {
			t.Errorf("validAbsPath(%q) = true, want false", tc.input)
		}
	}
}

func TestDefaultLoader_InvalidDefault_ValidationFails(t *testing.T) {
	orig := DEFAULT_APP_CONFIG
	defer func() { DEFAULT_APP_CONFIG = orig }()

	bad := orig
	bad.SessionFile = "relative/session.json"
	DEFAULT_APP_CONFIG = bad

	_, err := Load()
	assert.Error(t, err)
}
