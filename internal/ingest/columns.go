package ingest

import "strings"

// FindColumn matches the first target against the header, case-insensitively: an exact match
// wins, otherwise either name may contain the other. Targets are tried in order.
func FindColumn(columns []string, targets ...string) (string, bool) {
	idx := findColumnIndex(columns, targets...)
	if idx < 0 {
		return "", false
	}
	return columns[idx], true
}

func findColumnIndex(columns []string, targets ...string) int {
	lowered := make([]string, len(columns))
	for i, c := range columns {
		lowered[i] = strings.ToLower(strings.TrimSpace(c))
	}
	for _, target := range targets {
		tl := strings.ToLower(strings.TrimSpace(target))
		for i, c := range lowered {
			if c == tl {
				return i
			}
		}
	}
	for _, target := range targets {
		tl := strings.ToLower(strings.TrimSpace(target))
		if tl == "" {
			continue
		}
		for i, c := range lowered {
			if c == "" {
				continue
			}
			if strings.Contains(c, tl) || strings.Contains(tl, c) {
				return i
			}
		}
	}
	return -1
}

// columnWithWords returns the first column whose lower-cased name contains every word.
func columnWithWords(columns []string, words ...string) int {
	for i, c := range columns {
		lc := strings.ToLower(c)
		all := true
		for _, w := range words {
			if !strings.Contains(lc, w) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}
