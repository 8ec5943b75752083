package utils

import (
	"strings"
	"testing"
)

func TestHasRegistrableDomain(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"x.com", true},
		{"web.whatsapp.com", true},
		{"example.co.uk", true},
		{"com", false},
		{"co.uk", false},
	}
	for _, tt := range tests {
		if got := HasRegistrableDomain(tt.in); got != tt.want {
			t.Errorf("HasRegistrableDomain(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidFQDN(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"example.com", true},
		{"sub.domain.example.com", true},
		{"a-b.c-d", true},
		{"1a.2b", true},
		{"xn--d1acufc.xn--p1ai", true},

		{strings.Repeat("a", 64) + ".com", false},
		{strings.Repeat("abcdefghi.", 26) + "com", false},
		{"example..com", false},
		{".example.com", false},
		{"example.com.", false},
		{"localhost", false},
		{"", false},
		{"-abc.com", false},
		{"abc-.com", false},
		{"_abc.com", false},
		{"*.abc.com", false},
		{"ex ample.com", false},
		{"exämple.com", false},
	}
	for _, tt := range tests {
		if got := IsValidFQDN(tt.name); got != tt.want {
			t.Errorf("IsValidFQDN(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
