// Package fsglob implements the Filesystem Glob Engine: superglob expansion
// followed by delegation to the VFS collaborator.
package fsglob

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/blackvault/artifactresolver/internal/vfs"
)

// defaultSuperglobDepth is used when a `**` is not followed by an explicit
// depth.
const defaultSuperglobDepth = 3

var superglobPattern = regexp.MustCompile(`\*\*(\d*)`)

// ExpandSuperglob rewrites a template containing `**` or `**N` into a finite
// list of bounded-depth wildcard templates: `**` becomes `*`, then `*/*`,
// then `*/*/*`, ..., up to the depth bound. Templates without `**` pass
// through unchanged as a single-element slice.
func ExpandSuperglob(template string) []string {
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

	out := make([]string, 0, depth)
	levels := make([]string, 0, depth)
	for level := 1; level <= depth; level++ {
		segs := make([]string, level)
		for i := range segs {
			segs[i] = "*"
		}
		levels = append(levels, strings.Join(segs, "/"))
	}
	for _, replacement := range levels {
		out = append(out, template[:loc[0]]+replacement+template[loc[1]:])
	}
	return out
}

// Engine delegates expanded templates to a VFS collaborator.
type Engine struct {
	fs vfs.VFS
}

// New builds a Filesystem Glob Engine over fs.
func New(fs vfs.VFS) *Engine {
	return &Engine{fs: fs}
}

// GlobFiles resolves templates against partitions, expanding any superglobs
// first. Result order follows template order, then VFS discovery order:
// the engine concatenates and preserves discovery order rather than
// sorting or deduplicating.
func (e *Engine) GlobFiles(ctx context.Context, templates []string, partitions []vfs.Partition) ([]vfs.PathSpec, error) {
	var expanded []string
	for _, t := range templates {
		expanded = append(expanded, ExpandSuperglob(t)...)
	}
	return e.fs.FindPaths(ctx, expanded, partitions)
}
