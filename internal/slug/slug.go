package slug

import (
	"regexp"
	"strings"
)

var reSlug = regexp.MustCompile(`^[a-z0-9-]{1,60}$`)

// IsSlug reports whether s is already a safe file-name fragment.
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify converts s into a fragment usable in export file names:
// lowercase, anything outside [a-z0-9] becomes '-', repeats collapse,
// trimmed to 60 runes and stripped of leading/trailing dashes.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			out = append(out, r)
			prevDash = false
		default:
			if prevDash {
				continue
			}
			out = append(out, '-')
			prevDash = true
		}
		if len(out) >= 60 {
			break
		}
	}
	return strings.Trim(string(out), "-")
}
