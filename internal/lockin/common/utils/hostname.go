package utils

import (
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

// HasRegistrableDomain reports whether name sits at or below a registrable
// domain (eTLD+1). Bare public suffixes such as "com" or "co.uk" cannot be
// blocked meaningfully through a hosts file and are rejected.
func HasRegistrableDomain(name string) bool {
	_, err := publicsuffix.EffectiveTLDPlusOne(CanonicalDNSName(name))
	return err == nil
}

// IsValidFQDN checks whether the provided string is a valid host name for a
// hosts-file entry:
//   - The total length must not exceed 253 characters.
//   - The name must contain at least two labels.
//   - Each label must be between 1 and 63 characters long.
//   - Labels hold letters, digits and hyphens and never start or end with a hyphen.
func IsValidFQDN(name string) bool {
	if len(name) == 0 || len(name) > 253 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !isHostRune(r) {
				return false
			}
		}
	}
	return true
}

func isHostRune(r rune) bool {
	return r == '-' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}
