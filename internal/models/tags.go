package models

import "strings"

// NormalizeTag canonicalizes a free-form tag to UPPER_SNAKE form: runs of
// anything that is not a letter or digit become single underscores. Returns
// "" when nothing survives.
func NormalizeTag(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// NormalizeTags normalizes each tag and de-duplicates, preserving the order
// of first appearance. Empty results are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ParseTags splits a stored comma-separated tag list into a normalized set.
func ParseTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(csv, ","))
}

// FormatTags renders tags back to the comma-separated storage form.
func FormatTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ",")
}
