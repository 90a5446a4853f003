package utils

import "strings"

// ParseCSV splits a comma-separated list and returns trimmed, non-empty,
// de-duplicated values in their original order.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}

	return result
}
