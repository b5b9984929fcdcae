package imagefetch

import (
	"regexp"
	"strings"
)

var (
	orgSuffixRe     = regexp.MustCompile(`(?i)\s+(transit|authority|agency|district|metro)$`)
	nonAlphanumicRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// ShortName derives a filesystem-safe short name from an entity name:
// strip a trailing generic organizational suffix, lower-case, collapse
// non-alphanumeric runs to a single underscore, trim separators. An empty
// result maps to "unknown".
func ShortName(name string) string {
	name = orgSuffixRe.ReplaceAllString(name, "")
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonAlphanumicRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "unknown"
	}
	return name
}
