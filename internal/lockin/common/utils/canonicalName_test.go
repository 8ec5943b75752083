package utils

import "testing"

func TestCanonicalDNSName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.COM", "example.com"},
		{" example.com. ", "example.com"},
		{"example.com...", "example.com"},
		{"", ""},
		{".", ""},
	}
	for _, tt := range tests {
		if got := CanonicalDNSName(tt.in); got != tt.want {
			t.Errorf("CanonicalDNSName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSite(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"chatgpt.com", "chatgpt.com"},
		{"https://www.Reddit.com/r/golang", "www.reddit.com"},
		{"http://example.com:8080/", "example.com"},
		{"*.example.com", "example.com"},
		{".example.com.", "example.com"},
		{"example.com?q=1", "example.com"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSite(tt.in); got != tt.want {
			t.Errorf("NormalizeSite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
