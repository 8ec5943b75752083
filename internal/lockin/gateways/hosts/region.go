// Package hosts owns lockin's managed region inside the system hosts file.
// Lines outside the region belong to the user or other tools and are
// preserved byte for byte.
package hosts

import (
	"net"
	"strings"

	"github.com/haukened/lockin/internal/lockin/common/utils"
	"github.com/haukened/lockin/internal/lockin/domain"
)

const (
	BlockStart = "# >>> LOCKIN BLOCK START >>>"
	BlockEnd   = "# <<< LOCKIN BLOCK END <<<"

	scopeSession = "# lockin:scope session"
	scopeAlways  = "# lockin:scope always"

	sinkhole = "0.0.0.0"
)

// Document is a parsed hosts file.
type Document struct {
	// Foreign holds every line outside the managed region, in order.
	Foreign []string
	// Region is the union of all managed regions found.
	Region domain.ManagedRegion
	// Regions counts START markers seen.
	Regions int
	// Malformed is set when markers are unbalanced.
	Malformed bool
}

// Parse splits hosts content into foreign lines and the managed region.
// Multiple regions are merged. An unterminated region runs to the end of
// the file. Entries in a region without a scope header are session
// entries.
func Parse(content string) Document {
	var doc Document
	inside := false
	toAlways := false
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == BlockStart:
			if inside {
				doc.Malformed = true
			}
			inside, toAlways = true, false
			doc.Regions++
			continue
		case trimmed == BlockEnd:
			if !inside {
				doc.Malformed = true
			}
			inside = false
			continue
		case !inside:
			doc.Foreign = append(doc.Foreign, line)
			continue
		case trimmed == scopeSession:
			toAlways = false
			continue
		case trimmed == scopeAlways:
			toAlways = true
			continue
		}

		for _, name := range lineNames(trimmed) {
			if toAlways {
				doc.Region.Always = append(doc.Region.Always, name)
			} else {
				doc.Region.Session = append(doc.Region.Session, name)
			}
		}
	}
	if inside {
		doc.Malformed = true
	}
	doc.Region = doc.Region.Normalize()
	return doc
}

// Render produces the full file content for foreign lines plus region.
// Trailing blank foreign lines are dropped; an empty region renders no
// markers at all.
func Render(foreign []string, region domain.ManagedRegion) string {
	region = region.Normalize()
	lines := trimTrailingBlank(foreign)

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if region.IsEmpty() {
		return b.String()
	}
	if len(lines) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(BlockStart + "\n")
	writeScope(&b, scopeSession, region.Session)
	writeScope(&b, scopeAlways, region.Always)
	b.WriteString(BlockEnd + "\n")
	return b.String()
}

func writeScope(b *strings.Builder, header string, domains []string) {
	if len(domains) == 0 {
		return
	}
	b.WriteString(header + "\n")
	for _, d := range domains {
		b.WriteString(sinkhole + " " + d + "\n")
	}
}

// Shadow is a foreign hosts entry that resolves a blocked domain to a
// routable address. It precedes the managed region, so the resolver's
// first-match lookup would honour it instead of the block.
type Shadow struct {
	Line    int
	Address string
	Name    string
}

// hostEntry is one address-to-names line outside the region.
type hostEntry struct {
	line    int
	address string
	names   []string
}

func foreignEntries(foreign []string) []hostEntry {
	var out []hostEntry
	for i, line := range foreign {
		if j := strings.IndexByte(line, '#'); j >= 0 {
			line = line[:j]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names := make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			names = append(names, utils.CanonicalDNSName(f))
		}
		out = append(out, hostEntry{line: i + 1, address: fields[0], names: names})
	}
	return out
}

// blocking reports whether addr is a sinkhole: unspecified or loopback.
func blocking(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && (ip.IsUnspecified() || ip.IsLoopback())
}

func lineNames(trimmed string) []string {
	if strings.HasPrefix(trimmed, "#") {
		return nil
	}
	if j := strings.IndexByte(trimmed, '#'); j >= 0 {
		trimmed = trimmed[:j]
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return nil
	}
	out := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		if name := utils.CanonicalDNSName(f); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}
