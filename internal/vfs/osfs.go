package vfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/djherbis/times"
)

// osPathSpec is the PathSpec implementation for OSFS.
type osPathSpec struct {
	partition string
	relative  string // '/'-separated, relative to the partition root
}

func (p osPathSpec) RelativePath() string { return p.relative }

// OSFS is a VFS backed by real local directories, one per logical
// "partition". It lets the CLI run the resolver end-to-end against a plain
// directory (e.g. an extracted triage bundle, or a mounted loopback) without
// a real forensic disk-image reader, which remains out of scope for the
// core.
type OSFS struct {
	roots map[string]string // partition handle -> absolute filesystem root
	order []string
}

// NewOSFS builds an OSFS with one partition per provided root directory. The
// partition handles are assigned "c", "d", "e", ... in the order given,
// matching the convention the original driver uses for disk partitions.
func NewOSFS(roots ...string) *OSFS {
	fs := &OSFS{roots: make(map[string]string)}
	for i, root := range roots {
		handle := string(rune('c' + i))
		fs.roots[handle] = filepath.Clean(root)
		fs.order = append(fs.order, handle)
	}
	return fs
}

func (f *OSFS) Partitions(ctx context.Context) ([]Partition, error) {
	out := make([]Partition, 0, len(f.order))
	for _, h := range f.order {
		out = append(out, Partition{Handle: h, TypeChain: []TypeIndicator{TypeIndicatorFileSystem}})
	}
	return out, nil
}

func (f *OSFS) absolute(partition, relative string) (string, error) {
	root, ok := f.roots[partition]
	if !ok {
		return "", fmt.Errorf("vfs: unknown partition %q", partition)
	}
	relative = strings.TrimPrefix(relative, "/")
	return filepath.Join(root, filepath.FromSlash(relative)), nil
}

func (f *OSFS) FindPaths(ctx context.Context, templates []string, partitions []Partition) ([]PathSpec, error) {
	var results []PathSpec
	for _, tmpl := range templates {
		tmpl = strings.ReplaceAll(tmpl, "\\", "/")
		tmpl = strings.TrimPrefix(tmpl, "/")
		isGlob := strings.ContainsAny(tmpl, "*?")
		for _, part := range partitions {
			root, ok := f.roots[part.Handle]
			if !ok {
				continue
			}
			if !isGlob {
				if rel, ok := findCaseInsensitive(root, tmpl); ok {
					results = append(results, osPathSpec{partition: part.Handle, relative: "/" + rel})
				}
				continue
			}
			matches, err := f.walkGlob(root, tmpl)
			if err != nil {
				continue
			}
			for _, rel := range matches {
				results = append(results, osPathSpec{partition: part.Handle, relative: "/" + rel})
			}
		}
	}
	return results, nil
}

// walkGlob matches a '/'-separated, possibly multi-segment glob against
// every entry under root, case-insensitively.
func (f *OSFS) walkGlob(root, tmpl string) ([]string, error) {
	re, err := globToRegexp(tmpl)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // tolerant traversal: skip unreadable entries
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if re.MatchString(rel) {
			out = append(out, rel)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// findCaseInsensitive resolves a '/'-separated, non-glob template against
// root one segment at a time, comparing each segment case-insensitively
// (strings.EqualFold) the way MemVFS.FindPaths matches its non-glob branch.
// It returns the real on-disk relative path (actual casing), not tmpl
// itself, so callers can open/stat the result directly.
func findCaseInsensitive(root, tmpl string) (string, bool) {
	tmpl = strings.Trim(tmpl, "/")
	if tmpl == "" {
		return "", true
	}
	segments := strings.Split(tmpl, "/")
	cur := root
	var real []string
	for _, seg := range segments {
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), seg) {
				real = append(real, e.Name())
				cur = filepath.Join(cur, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return strings.Join(real, "/"), true
}

func (f *OSFS) Open(ctx context.Context, path PathSpec) (io.ReadCloser, error) {
	return f.OpenStream(ctx, path, 0)
}

func (f *OSFS) OpenStream(ctx context.Context, path PathSpec, streamIndex int) (io.ReadCloser, error) {
	if streamIndex != 0 {
		return nil, fmt.Errorf("vfs: osfs does not support alternate data streams")
	}
	op, ok := path.(osPathSpec)
	if !ok {
		return nil, fmt.Errorf("vfs: foreign path spec")
	}
	abs, err := f.absolute(op.partition, op.relative)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

func (f *OSFS) StreamCount(ctx context.Context, path PathSpec) (int, error) {
	return 1, nil
}

func (f *OSFS) Stat(ctx context.Context, path PathSpec) (Stat, error) {
	op, ok := path.(osPathSpec)
	if !ok {
		return Stat{}, fmt.Errorf("vfs: foreign path spec")
	}
	abs, err := f.absolute(op.partition, op.relative)
	if err != nil {
		return Stat{}, err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return Stat{}, err
	}
	typ := TypeOther
	if info.IsDir() {
		typ = TypeDirectory
	} else if info.Mode().IsRegular() {
		typ = TypeFile
	}

	st := Stat{Size: info.Size(), Name: info.Name(), Type: typ}
	t, err := times.Stat(abs)
	if err != nil {
		// Partial stat: timestamps stay zero (recorded as epoch by the Extractor).
		return st, nil
	}
	st.Mtime = t.ModTime().UTC()
	st.Atime = t.AccessTime().UTC()
	if t.HasChangeTime() {
		st.Ctime = t.ChangeTime().UTC()
	} else if t.HasBirthTime() {
		st.Ctime = t.BirthTime().UTC()
	}
	return st, nil
}

func (f *OSFS) TypeIndicator(ctx context.Context, path PathSpec) TypeIndicator {
	return TypeIndicatorFileSystem
}

func (f *OSFS) ReconstructFullPath(path PathSpec) string {
	op, ok := path.(osPathSpec)
	if !ok {
		return ""
	}
	abs, err := f.absolute(op.partition, op.relative)
	if err != nil {
		return op.relative
	}
	return abs
}
