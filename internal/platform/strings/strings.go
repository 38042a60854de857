// Package strings holds string helpers shared by services
package strings

import std "strings"

// SplitList splits a comma separated value, trimming entries and dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, p := range std.Split(s, ",") {
		if v := std.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MustString returns s when it has non whitespace content, otherwise panics naming what was missing
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a route prefix to a single leading slash and no trailing slash
// panics when nothing is left
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}

// IfEmpty returns def when in has no entries
func IfEmpty[T any](in, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}
