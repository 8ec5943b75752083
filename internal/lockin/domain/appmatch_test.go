package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppRule(t *testing.T) {
	tests := []struct {
		raw     string
		want    AppRule
		wantErr bool
	}{
		{"Discord", AppRule{Name: "Discord", Kind: AppMatchSubstring}, false},
		{" =Mail ", AppRule{Name: "Mail", Kind: AppMatchExact}, false},
		{"= Steam", AppRule{Name: "Steam", Kind: AppMatchExact}, false},
		{"", AppRule{}, true},
		{"=", AppRule{}, true},
	}
	for _, tt := range tests {
		got, err := ParseAppRule(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, "raw=%q", tt.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestAppRule_StringRoundTrip(t *testing.T) {
	for _, raw := range []string{"Discord", "=Mail", "Epic Games Launcher"} {
		r, err := ParseAppRule(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, r.String())
	}
}

func TestAppRule_Matches(t *testing.T) {
	tests := []struct {
		rule    AppRule
		process string
		want    bool
	}{
		{AppRule{"discord", AppMatchSubstring}, "Discord Helper (Renderer)", true},
		{AppRule{"Discord", AppMatchSubstring}, "discord", true},
		{AppRule{"Mail", AppMatchExact}, "mail", true},
		{AppRule{"Mail", AppMatchExact}, "Mailspring", false},
		{AppRule{"Mail", AppMatchSubstring}, "Mailspring", true},
		{AppRule{"Steam", AppMatchSubstring}, "firefox", false},
		{AppRule{"Steam", AppMatchSubstring}, "", false},
		{AppRule{"", AppMatchSubstring}, "anything", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rule.Matches(tt.process), "%v vs %q", tt.rule, tt.process)
	}
}

func TestParseAppMatchKind(t *testing.T) {
	k, err := ParseAppMatchKind("EXACT")
	require.NoError(t, err)
	assert.Equal(t, AppMatchExact, k)

	k, err = ParseAppMatchKind("")
	require.NoError(t, err)
	assert.Equal(t, AppMatchSubstring, k)

	_, err = ParseAppMatchKind("regex")
	assert.Error(t, err)

	assert.Equal(t, "substring", AppMatchSubstring.String())
	assert.Equal(t, "exact", AppMatchExact.String())
	assert.Equal(t, "AppMatchKind(9)", AppMatchKind(9).String())
}

func TestParseAppRules_FailsOnInvalid(t *testing.T) {
	_, err := ParseAppRules([]string{"Steam", " "})
	assert.Error(t, err)

	rules, err := ParseAppRules([]string{"Steam", "=Mail"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}
