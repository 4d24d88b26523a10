package model

import "strings"

// CanonicalizeVar normalises a variable key per spec: lowercase, strip
// surrounding '%' characters, and strip a leading "environ_" prefix. Lookups
// must canonicalise identically so "%SystemRoot%" and "environ_systemroot"
// resolve to the same cache entry.
func CanonicalizeVar(key string) string {
	key = strings.ReplaceAll(key, "%", "")
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, "environ_")
	return key
}
