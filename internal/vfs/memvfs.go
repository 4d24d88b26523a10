package vfs

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"
)

// memPathSpec is the PathSpec implementation for MemVFS.
type memPathSpec struct {
	partition string
	path      string // always '/'-separated, leading '/'
}

func (p memPathSpec) RelativePath() string { return p.path }

// memEntry is one file or directory in the in-memory tree.
type memEntry struct {
	data      []byte
	extra     [][]byte // additional data streams, if any
	isDir     bool
	atime     time.Time
	mtime     time.Time
	ctime     time.Time
}

// MemVFS is an in-memory VFS used by tests. It is not a stand-in for a real forensic image reader; it
// exists to exercise the resolver's contract with the VFS collaborator.
type MemVFS struct {
	// partitions maps partition handle -> path -> entry.
	partitions map[string]map[string]*memEntry
	typeChains map[string][]TypeIndicator
	order      []string
}

// NewMemVFS creates an empty in-memory VFS.
func NewMemVFS() *MemVFS {
	return &MemVFS{
		partitions: make(map[string]map[string]*memEntry),
		typeChains: make(map[string][]TypeIndicator),
	}
}

// AddPartition registers a partition handle with an explicit type chain
// (defaults to [filesystem] when chain is empty).
func (m *MemVFS) AddPartition(handle string, chain ...TypeIndicator) {
	if _, ok := m.partitions[handle]; ok {
		return
	}
	if len(chain) == 0 {
		chain = []TypeIndicator{TypeIndicatorFileSystem}
	}
	m.partitions[handle] = make(map[string]*memEntry)
	m.typeChains[handle] = chain
	m.order = append(m.order, handle)
}

// PutFile registers a file at path (leading '/' required) on partition,
// with the given content and timestamps.
func (m *MemVFS) PutFile(partition, path string, content []byte, mtime time.Time) {
	m.ensurePartition(partition)
	m.partitions[partition][normPath(path)] = &memEntry{
		data:  content,
		mtime: mtime,
		atime: mtime,
		ctime: mtime,
	}
}

// PutFileStreams registers a file with additional data streams beyond the
// first, for entries that carry more than one data stream.
func (m *MemVFS) PutFileStreams(partition, path string, streams [][]byte, mtime time.Time) {
	m.ensurePartition(partition)
	if len(streams) == 0 {
		streams = [][]byte{{}}
	}
	m.partitions[partition][normPath(path)] = &memEntry{
		data:  streams[0],
		extra: streams[1:],
		mtime: mtime,
		atime: mtime,
		ctime: mtime,
	}
}

// PutDir registers a directory at path on partition.
func (m *MemVFS) PutDir(partition, path string) {
	m.ensurePartition(partition)
	m.partitions[partition][normPath(path)] = &memEntry{isDir: true}
}

func (m *MemVFS) ensurePartition(partition string) {
	if _, ok := m.partitions[partition]; !ok {
		m.AddPartition(partition)
	}
}

func normPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (m *MemVFS) Partitions(ctx context.Context) ([]Partition, error) {
	out := make([]Partition, 0, len(m.order))
	for _, h := range m.order {
		out = append(out, Partition{Handle: h, TypeChain: m.typeChains[h]})
	}
	return out, nil
}

// globToRegexp compiles a '*'/'?' glob into a case-insensitive anchored
// regexp, matching the contract fsglob and regglob rely on. Neither '*' nor
// '?' matches across a '/' separator.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func (m *MemVFS) FindPaths(ctx context.Context, templates []string, partitions []Partition) ([]PathSpec, error) {
	var results []PathSpec
	for _, tmpl := range templates {
		tmpl = normPath(tmpl)
		isGlob := strings.ContainsAny(tmpl, "*?")
		var re *regexp.Regexp
		if isGlob {
			var err error
			re, err = globToRegexp(tmpl)
			if err != nil {
				continue
			}
		}
		for _, part := range partitions {
			entries := m.partitions[part.Handle]
			if entries == nil {
				continue
			}
			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				match := false
				if isGlob {
					match = re.MatchString(k)
				} else {
					match = strings.EqualFold(k, tmpl)
				}
				if match {
					results = append(results, memPathSpec{partition: part.Handle, path: k})
				}
			}
		}
	}
	return results, nil
}

func (m *MemVFS) lookup(path PathSpec) (*memEntry, memPathSpec, bool) {
	mp, ok := path.(memPathSpec)
	if !ok {
		return nil, mp, false
	}
	entries := m.partitions[mp.partition]
	if entries == nil {
		return nil, mp, false
	}
	e, ok := entries[mp.path]
	return e, mp, ok
}

func (m *MemVFS) Open(ctx context.Context, path PathSpec) (io.ReadCloser, error) {
	return m.OpenStream(ctx, path, 0)
}

func (m *MemVFS) OpenStream(ctx context.Context, path PathSpec, streamIndex int) (io.ReadCloser, error) {
	e, mp, ok := m.lookup(path)
	if !ok {
		return nil, fmt.Errorf("vfs: no such path %q", path.RelativePath())
	}
	if streamIndex == 0 {
		return io.NopCloser(strings.NewReader(string(e.data))), nil
	}
	idx := streamIndex - 1
	if idx < 0 || idx >= len(e.extra) {
		return nil, fmt.Errorf("vfs: no stream %d for %q", streamIndex, mp.path)
	}
	return io.NopCloser(strings.NewReader(string(e.extra[idx]))), nil
}

func (m *MemVFS) StreamCount(ctx context.Context, path PathSpec) (int, error) {
	e, _, ok := m.lookup(path)
	if !ok {
		return 0, fmt.Errorf("vfs: no such path %q", path.RelativePath())
	}
	return 1 + len(e.extra), nil
}

func (m *MemVFS) Stat(ctx context.Context, path PathSpec) (Stat, error) {
	e, mp, ok := m.lookup(path)
	if !ok {
		return Stat{}, fmt.Errorf("vfs: no such path %q", path.RelativePath())
	}
	typ := TypeFile
	if e.isDir {
		typ = TypeDirectory
	}
	name := mp.path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return Stat{
		Size:  int64(len(e.data)),
		Name:  name,
		Type:  typ,
		Atime: e.atime,
		Mtime: e.mtime,
		Ctime: e.ctime,
	}, nil
}

func (m *MemVFS) TypeIndicator(ctx context.Context, path PathSpec) TypeIndicator {
	return TypeIndicatorFileSystem
}

func (m *MemVFS) ReconstructFullPath(path PathSpec) string {
	mp, ok := path.(memPathSpec)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%s", mp.partition, mp.path)
}
