package domain

import "strings"

// NormalizeTags trims every tag, drops empty ones and removes duplicates,
// keeping the first occurrence. Tags are a set; order carries no meaning but
// is kept stable for display.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ParseTags splits a comma separated tag list as typed by a user.
func ParseTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}
