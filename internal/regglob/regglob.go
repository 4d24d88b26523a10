// Package regglob implements the Registry Glob Engine: key globbing via
// backslash-segment recursive descent, and value-name globbing, both
// implemented locally rather than delegated to the registry collaborator.
package regglob

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/blackvault/artifactresolver/internal/winreg"
)

const defaultSuperglobDepth = 3

var superglobPattern = regexp.MustCompile(`\*\*(\d*)`)

// expandSuperglob mirrors fsglob.ExpandSuperglob but joins levels with `\`
// instead of `/`, expanding otherwise identically.
func expandSuperglob(template string) []string {
	loc := superglobPattern.FindStringSubmatchIndex(template)
	if loc == nil {
		return []string{template}
	}

	depth := defaultSuperglobDepth
	if loc[2] != loc[3] {
		if n, err := strconv.Atoi(template[loc[2]:loc[3]]); err == nil && n > 0 {
			depth = n
		}
	}

	var out []string
	for level := 1; level <= depth; level++ {
		segs := make([]string, level)
		for i := range segs {
			segs[i] = "*"
		}
		replacement := strings.Join(segs, `\`)
		out = append(out, template[:loc[0]]+replacement+template[loc[1]:])
	}
	return out
}

// Logf receives warnings in the same structured-logging shape used across this module.
type Logf func(format string, args ...interface{})

// Engine globs registry key and value templates against a Registry
// collaborator.
type Engine struct {
	reg  winreg.Registry
	warn Logf
}

// New builds a Registry Glob Engine over reg.
func New(reg winreg.Registry, warn Logf) *Engine {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Engine{reg: reg, warn: warn}
}

// GlobKeys resolves template (after superglob expansion) into the matching
// keys. When ignoreTrailingWildcard is set, a trailing `*` segment is
// dropped before splitting -- used when a template targets a key container
// rather than its leaf.
func (e *Engine) GlobKeys(template string, ignoreTrailingWildcard bool) ([]winreg.Key, error) {
	var out []winreg.Key
	for _, t := range expandSuperglob(template) {
		keys, err := e.globKeysSingle(t, ignoreTrailingWildcard)
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
	}
	return out, nil
}

func (e *Engine) globKeysSingle(template string, ignoreTrailingWildcard bool) ([]winreg.Key, error) {
	template = strings.Trim(template, `\`)
	segments := strings.Split(template, `\`)
	if ignoreTrailingWildcard && len(segments) > 0 {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return nil, nil
	}

	firstWildcard := -1
	for i, seg := range segments {
		if strings.Contains(seg, "*") {
			firstWildcard = i
			break
		}
	}

	if firstWildcard == -1 {
		// No wildcard at all: an exact key path.
		key, err := e.reg.OpenKey(strings.Join(segments, `\`))
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, nil
		}
		return []winreg.Key{key}, nil
	}

	if firstWildcard == 0 {
		e.warn("registry template %q wildcards the root hive segment, which is unsupported", template)
		return nil, nil
	}

	prefix := strings.Join(segments[:firstWildcard], `\`)
	root, err := e.reg.OpenKey(prefix)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	return e.descend(segments, firstWildcard, root)
}

func (e *Engine) descend(segments []string, level int, current winreg.Key) ([]winreg.Key, error) {
	subkeys, err := e.reg.EnumerateSubkeys(current)
	if err != nil {
		return nil, err
	}

	matched := matchSubkeys(segments[level], subkeys)
	if level == len(segments)-1 {
		return matched, nil
	}

	var out []winreg.Key
	for _, m := range matched {
		deeper, err := e.descend(segments, level+1, m)
		if err != nil {
			e.warn("descending into %q: %v", m.Path(), err)
			continue
		}
		out = append(out, deeper...)
	}
	return out, nil
}

func matchSubkeys(segment string, subkeys []winreg.Key) []winreg.Key {
	var out []winreg.Key
	if strings.Contains(segment, "*") {
		re, err := segmentRegexp(segment)
		if err != nil {
			return nil
		}
		for _, k := range subkeys {
			if re.MatchString(baseName(k.Path())) {
				out = append(out, k)
			}
		}
		return out
	}
	for _, k := range subkeys {
		if strings.EqualFold(baseName(k.Path()), segment) {
			out = append(out, k)
		}
	}
	return out
}

func segmentRegexp(segment string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(segment)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	return regexp.Compile("(?i)^" + escaped + "$")
}

func baseName(path string) string {
	idx := strings.LastIndex(path, `\`)
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}

// GlobValues matches every value name on key against template (`*` -> `.*`,
// case-insensitive), returning the matched names in enumeration order.
func (e *Engine) GlobValues(key winreg.Key, template string) ([]string, error) {
	values, err := e.reg.EnumerateValues(key)
	if err != nil {
		return nil, err
	}
	re, err := segmentRegexp(template)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range values {
		if re.MatchString(v.Name) {
			out = append(out, v.Name)
		}
	}
	return out, nil
}
