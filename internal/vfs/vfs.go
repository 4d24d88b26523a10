// Package vfs defines the virtual-filesystem collaborator contract the
// resolver core depends on, plus reference implementations good enough to
// exercise the resolver end-to-end without a real forensic disk image. The
// real partition-enumerating, volume-decrypting VFS is explicitly out of
// scope for the core; OSFS, MemVFS and DiskImageVFS in this package are
// stand-ins that satisfy this contract.
package vfs

import (
	"context"
	"io"
	"time"
)

// EntryType classifies what a PathSpec points at.
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
	TypeOther     EntryType = "other"
)

// TypeIndicator identifies the storage/volume technology backing a
// partition, used by the driver to filter out volume-shadow-snapshot
// partitions.
type TypeIndicator string

const (
	TypeIndicatorRaw           TypeIndicator = "raw"
	TypeIndicatorVolumeShadow  TypeIndicator = "vshadow"
	TypeIndicatorEncrypted     TypeIndicator = "encrypted"
	TypeIndicatorFileSystem    TypeIndicator = "filesystem"
)

// PathSpec is an opaque handle identifying a location within a VFS,
// traversable only through the VFS that produced it.
type PathSpec interface {
	// RelativePath returns the partition-relative, '/'-separated path this
	// spec points to, e.g. "/Windows/System32/drivers/etc/hosts".
	RelativePath() string
}

// Stat carries the metadata the Extractor needs for a file record.
type Stat struct {
	Size    int64
	Name    string
	Type    EntryType
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

// Partition identifies one partition/volume within a mounted image.
type Partition struct {
	// Handle is opaque and passed back into FindPaths.
	Handle string
	// TypeChain lists the type indicators from outermost to innermost,
	// e.g. [filesystem] or [vshadow, filesystem].
	TypeChain []TypeIndicator
}

// HasIndicator reports whether any entry in the partition's type chain
// matches indicator.
func (p Partition) HasIndicator(indicator TypeIndicator) bool {
	for _, t := range p.TypeChain {
		if t == indicator {
			return true
		}
	}
	return false
}

// VFS is the contract the core requires from the virtual-filesystem
// collaborator.
type VFS interface {
	// Partitions enumerates the partitions found in the mounted evidence.
	Partitions(ctx context.Context) ([]Partition, error)

	// FindPaths resolves a list of glob-style templates (case-insensitive)
	// against the given partitions and returns every matching PathSpec, in
	// discovery order.
	FindPaths(ctx context.Context, templates []string, partitions []Partition) ([]PathSpec, error)

	// Open returns a readable stream for the first data stream of path. The
	// caller is responsible for closing it.
	Open(ctx context.Context, path PathSpec) (io.ReadCloser, error)

	// OpenStream returns a readable stream for the nth data stream (0 =
	// first/default) of path, for entries with multiple data streams.
	OpenStream(ctx context.Context, path PathSpec, streamIndex int) (io.ReadCloser, error)

	// StreamCount reports how many data streams path has (at least 1 for a
	// regular file).
	StreamCount(ctx context.Context, path PathSpec) (int, error)

	// Stat returns file metadata; partial/missing fields default to their
	// zero value rather than erroring. The Extractor records a zero
	// timestamp as the UNIX epoch.
	Stat(ctx context.Context, path PathSpec) (Stat, error)

	// TypeIndicator reports the storage technology backing path, for
	// diagnostics.
	TypeIndicator(ctx context.Context, path PathSpec) TypeIndicator

	// ReconstructFullPath renders a path spec back into a human-readable
	// string for logging/diagnostics.
	ReconstructFullPath(path PathSpec) string
}
