package vfs

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/filesystem"
)

// diskPathSpec is the PathSpec implementation for DiskImageVFS.
type diskPathSpec struct {
	partition string
	relative  string
}

func (p diskPathSpec) RelativePath() string { return p.relative }

// DiskImageVFS opens a raw disk image via go-diskfs and exposes each
// partition's filesystem through the VFS contract. This is the closest
// in-repo analogue to the real "mount the evidence image, enumerate
// partitions" collaborator the core keeps explicitly out of scope: it reads
// a real partition table and real on-disk filesystems, but it does not do
// volume decryption or forensic-format parsing (E01, VMDK, ...).
type DiskImageVFS struct {
	disk       *diskfs.Disk
	partitions map[string]filesystem.FileSystem
	order      []string
}

// OpenDiskImage opens imagePath and enumerates its partitions, assigning
// handles "c", "d", "e", ... in partition-table order, mirroring the
// convention used for the in-memory and directory-backed VFS variants.
func OpenDiskImage(imagePath string) (*DiskImageVFS, error) {
	disk, err := diskfs.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("vfs: opening disk image %q: %w", imagePath, err)
	}

	out := &DiskImageVFS{disk: disk, partitions: make(map[string]filesystem.FileSystem)}

	table, err := disk.GetPartitionTable()
	if err != nil {
		// No partition table: treat the whole disk as one filesystem,
		// matching go-diskfs's convention of partition index 0.
		fs, fsErr := disk.GetFilesystem(0)
		if fsErr != nil {
			return nil, fmt.Errorf("vfs: no partition table and no filesystem on %q: %w", imagePath, fsErr)
		}
		out.addPartition("c", fs)
		return out, nil
	}

	for i := range table.GetPartitions() {
		handle := string(rune('c' + i))
		fs, fsErr := disk.GetFilesystem(i + 1)
		if fsErr != nil {
			// Unreadable/unsupported filesystem on this partition: skip it
			// and continue rather than failing the whole image.
			continue
		}
		out.addPartition(handle, fs)
	}
	return out, nil
}

func (d *DiskImageVFS) addPartition(handle string, fs filesystem.FileSystem) {
	d.partitions[handle] = fs
	d.order = append(d.order, handle)
}

func (d *DiskImageVFS) Partitions(ctx context.Context) ([]Partition, error) {
	out := make([]Partition, 0, len(d.order))
	for _, h := range d.order {
		out = append(out, Partition{Handle: h, TypeChain: []TypeIndicator{TypeIndicatorFileSystem}})
	}
	return out, nil
}

// walkFS recursively lists every regular file/directory under dir in fs,
// tolerating unreadable subdirectories rather than aborting the walk.
func walkFS(fs filesystem.FileSystem, dir string) []string {
	var out []string
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		full := path.Join(dir, entry.Name())
		out = append(out, full)
		if entry.IsDir() {
			out = append(out, walkFS(fs, full)...)
		}
	}
	return out
}

// findCaseInsensitiveFS resolves a '/'-separated, non-glob template against
// fs one segment at a time, comparing each segment case-insensitively
// (strings.EqualFold) the way MemVFS.FindPaths matches its non-glob branch.
// It returns the real on-disk path (actual casing), not tmpl itself, so
// callers can OpenFile/Stat the result directly.
func findCaseInsensitiveFS(fs filesystem.FileSystem, tmpl string) (string, bool) {
	tmpl = strings.Trim(tmpl, "/")
	if tmpl == "" {
		return "/", true
	}
	segments := strings.Split(tmpl, "/")
	cur := "/"
	for _, seg := range segments {
		entries, err := fs.ReadDir(cur)
		if err != nil {
			return "", false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), seg) {
				cur = path.Join(cur, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return cur, true
}

func (d *DiskImageVFS) FindPaths(ctx context.Context, templates []string, partitions []Partition) ([]PathSpec, error) {
	var results []PathSpec
	for _, tmpl := range templates {
		tmpl = strings.ReplaceAll(tmpl, "\\", "/")
		if !strings.HasPrefix(tmpl, "/") {
			tmpl = "/" + tmpl
		}
		isGlob := strings.ContainsAny(tmpl, "*?")
		re, reErr := globToRegexp(tmpl)

		for _, part := range partitions {
			fs, ok := d.partitions[part.Handle]
			if !ok {
				continue
			}
			if !isGlob {
				if rel, ok := findCaseInsensitiveFS(fs, tmpl); ok {
					results = append(results, diskPathSpec{partition: part.Handle, relative: rel})
				}
				continue
			}
			if reErr != nil {
				continue
			}
			all := walkFS(fs, "/")
			sort.Strings(all)
			for _, candidate := range all {
				if re.MatchString(candidate) {
					results = append(results, diskPathSpec{partition: part.Handle, relative: candidate})
				}
			}
		}
	}
	return results, nil
}

func (d *DiskImageVFS) Open(ctx context.Context, p PathSpec) (io.ReadCloser, error) {
	return d.OpenStream(ctx, p, 0)
}

func (d *DiskImageVFS) OpenStream(ctx context.Context, p PathSpec, streamIndex int) (io.ReadCloser, error) {
	if streamIndex != 0 {
		return nil, fmt.Errorf("vfs: disk image filesystems do not expose alternate data streams")
	}
	dp, ok := p.(diskPathSpec)
	if !ok {
		return nil, fmt.Errorf("vfs: foreign path spec")
	}
	fs, ok := d.partitions[dp.partition]
	if !ok {
		return nil, fmt.Errorf("vfs: unknown partition %q", dp.partition)
	}
	f, err := fs.OpenFile(dp.relative, 0)
	if err != nil {
		return nil, err
	}
	return &readOnlyFile{f}, nil
}

func (d *DiskImageVFS) StreamCount(ctx context.Context, p PathSpec) (int, error) {
	return 1, nil
}

func (d *DiskImageVFS) Stat(ctx context.Context, p PathSpec) (Stat, error) {
	dp, ok := p.(diskPathSpec)
	if !ok {
		return Stat{}, fmt.Errorf("vfs: foreign path spec")
	}
	fs, ok := d.partitions[dp.partition]
	if !ok {
		return Stat{}, fmt.Errorf("vfs: unknown partition %q", dp.partition)
	}
	dir := path.Dir(dp.relative)
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return Stat{}, err
	}
	name := path.Base(dp.relative)
	for _, e := range entries {
		if e.Name() == name {
			typ := TypeFile
			if e.IsDir() {
				typ = TypeDirectory
			}
			return Stat{
				Size:  e.Size(),
				Name:  name,
				Type:  typ,
				Mtime: e.ModTime().UTC(),
			}, nil
		}
	}
	return Stat{}, fmt.Errorf("vfs: %q not found", dp.relative)
}

func (d *DiskImageVFS) TypeIndicator(ctx context.Context, p PathSpec) TypeIndicator {
	return TypeIndicatorFileSystem
}

func (d *DiskImageVFS) ReconstructFullPath(p PathSpec) string {
	dp, ok := p.(diskPathSpec)
	if !ok {
		return ""
	}
	return dp.partition + ":" + dp.relative
}

// readOnlyFile adapts a filesystem.File (io.ReadWriteSeeker + Closer) into
// an io.ReadCloser for the VFS contract.
type readOnlyFile struct {
	f filesystem.File
}

func (r *readOnlyFile) Read(p []byte) (int, error) { return r.f.Read(p) }
func (r *readOnlyFile) Close() error                { return r.f.Close() }
