package config

import (
	"path/filepath"
	"strings"
)

// MatchPattern reports whether a file name matches an include pattern.
// Matching is case-insensitive; patterns starting with '#' never match.
func MatchPattern(pattern, name string) bool {
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return false
	}
	pattern = strings.ToLower(pattern)
	name = strings.ToLower(filepath.Base(name))

	if matched, _ := filepath.Match(pattern, name); matched {
		return true
	}
	return name == pattern
}

// MatchAny reports whether name matches any of the patterns.
func MatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if MatchPattern(p, name) {
			return true
		}
	}
	return false
}
