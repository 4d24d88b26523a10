// Package extractor implements the Extractor: it walks a ResolvedArtifact's
// six collections and writes file/registry-key/registry-value records (plus
// streamed blobs) into the output store.
package extractor

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"github.com/blackvault/artifactresolver/internal/model"
	"github.com/blackvault/artifactresolver/internal/resolver"
	"github.com/blackvault/artifactresolver/internal/store"
	"github.com/blackvault/artifactresolver/internal/vfs"
	"github.com/blackvault/artifactresolver/internal/winreg"
)

// chunkSize is the streaming-copy buffer size.
const chunkSize = 64 * 1024

// Logf receives warnings/debug notes in the same structured-logging
// style.
type Logf func(format string, args ...interface{})

// Extractor writes a ResolvedArtifact's contents into a Store against one
// partition's VFS/registry collaborators.
type Extractor struct {
	fs        vfs.VFS
	reg       winreg.Registry
	partition string
	checksum  string
	warn      Logf
	debug     Logf
}

// New builds an Extractor for one partition. reg may be nil for a partition
// with no registry-bearing filesystem. checksumAlgorithm selects the hash
// used to checksum each extracted file's first data stream (one of
// "md5", "sha1", "sha256", "sha512"); an unrecognised value disables
// checksumming rather than failing the extraction.
func New(fs vfs.VFS, reg winreg.Registry, partition, checksumAlgorithm string, warn, debug Logf) *Extractor {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	if debug == nil {
		debug = func(string, ...interface{}) {}
	}
	return &Extractor{fs: fs, reg: reg, partition: partition, checksum: checksumAlgorithm, warn: warn, debug: debug}
}

// newHasher returns the hash.Hash for a checksum algorithm name, or
// (nil, false) if the name isn't one of the supported algorithms.
func newHasher(algorithm string) (hash.Hash, bool) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), true
	case "sha1":
		return sha1.New(), true
	case "sha256":
		return sha256.New(), true
	case "sha512":
		return sha512.New(), true
	default:
		return nil, false
	}
}

// Extract writes every handle in ra (and its sub-artifacts, recursively)
// into s. Returns true iff at least one record was written; a false return
// is not an error, it means nothing in ra produced a record.
func (e *Extractor) Extract(ctx context.Context, ra *resolver.ResolvedArtifact, s store.Store) bool {
	if ra.Empty() {
		return false
	}

	wrote := false
	name := ra.Definition.Name

	for _, p := range ra.Files {
		if e.extractFile(ctx, name, p, s) {
			wrote = true
		}
	}
	for _, p := range ra.Dirs {
		if e.extractFile(ctx, name, p, s) {
			wrote = true
		}
	}
	for _, p := range ra.Paths {
		if e.extractFile(ctx, name, p, s) {
			wrote = true
		}
	}

	for _, key := range ra.RegistryKeys {
		if e.extractKey(name, key, nil, s) {
			wrote = true
		}
	}
	for _, match := range ra.RegistryValues {
		if e.extractKey(name, match.Key, match.ValueNames, s) {
			wrote = true
		}
	}

	for _, sub := range ra.SubArtifacts {
		if e.Extract(ctx, sub, s) {
			wrote = true
		}
	}

	return wrote
}

func (e *Extractor) extractFile(ctx context.Context, artifact string, p vfs.PathSpec, s store.Store) bool {
	st, err := e.fs.Stat(ctx, p)
	if err != nil {
		e.warn("stat failed for %q: %v", e.fs.ReconstructFullPath(p), err)
		return false
	}
	if st.Type != vfs.TypeFile {
		e.debug("skipping non-regular-file entry %q", e.fs.ReconstructFullPath(p))
		return false
	}

	// A missing (zero) timestamp is recorded as the UNIX epoch.
	stamp := func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Unix(0, 0).UTC()
		}
		return t.UTC().Truncate(time.Millisecond)
	}
	recordID, err := s.InsertFileRecord(artifact, st.Name, store.Timestamps{
		Accessed: stamp(st.Atime),
		Modified: stamp(st.Mtime),
		Created:  stamp(st.Ctime),
	}, store.Origin{Path: p.RelativePath(), Partition: e.partition})
	if err != nil {
		e.warn("inserting file record for %q: %v", p.RelativePath(), err)
		return false
	}

	streamCount, err := e.fs.StreamCount(ctx, p)
	if err != nil || streamCount < 1 {
		streamCount = 1
	}

	for i := 0; i < streamCount; i++ {
		exportName := st.Name
		if i > 0 {
			exportName = fmt.Sprintf("%s-%d", st.Name, i)
		}
		e.copyStream(ctx, p, i, recordID, exportName, s)
	}
	return true // file record was written, whatever became of its streams
}

// copyStream copies one data stream from p into recordID's exportName blob.
// Only the first stream (streamIndex 0) is checksummed: alternate data
// streams carry metadata, not the file's primary content.
func (e *Extractor) copyStream(ctx context.Context, p vfs.PathSpec, streamIndex int, recordID, exportName string, s store.Store) bool {
	src, err := e.fs.OpenStream(ctx, p, streamIndex)
	if err != nil {
		e.warn("opening stream %d of %q: %v", streamIndex, e.fs.ReconstructFullPath(p), err)
		return false
	}
	defer src.Close()

	dst, err := s.OpenExportStream(recordID, exportName)
	if err != nil {
		e.warn("opening export stream %q for %q: %v", exportName, recordID, err)
		return false
	}
	defer dst.Close()

	var w io.Writer = dst
	var hasher hash.Hash
	if streamIndex == 0 {
		if h, ok := newHasher(e.checksum); ok {
			hasher = h
			w = io.MultiWriter(dst, hasher)
		}
	}

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(w, src, buf); err != nil {
		e.warn("copying %q: %v", e.fs.ReconstructFullPath(p), err)
		return false
	}

	if hasher != nil {
		value := hex.EncodeToString(hasher.Sum(nil))
		if err := s.RecordChecksum(recordID, e.checksum, value); err != nil {
			e.warn("recording checksum for %q: %v", recordID, err)
		}
	}
	return true
}

// extractKey writes key (and, if filterNames is non-nil, only the named
// values; otherwise every contained value) into s.
func (e *Extractor) extractKey(artifact string, key winreg.Key, filterNames []string, s store.Store) bool {
	if e.reg == nil {
		return false
	}

	modified := e.reg.LastWrittenTime(key)
	if modified.IsZero() {
		modified = time.Unix(0, 0).UTC()
	} else {
		modified = modified.UTC().Truncate(time.Microsecond)
	}

	keyID, err := s.InsertRegistryKey(artifact, modified, key.Path())
	if err != nil {
		e.warn("inserting registry key record for %q: %v", key.Path(), err)
		return false
	}

	values, err := e.reg.EnumerateValues(key)
	if err != nil {
		e.warn("enumerating values of %q: %v", key.Path(), err)
		return true // key record was still written
	}

	var wanted map[string]bool
	if filterNames != nil {
		wanted = make(map[string]bool, len(filterNames))
		for _, n := range filterNames {
			wanted[n] = true
		}
	}

	wrote := true
	for _, v := range values {
		if wanted != nil && !wanted[v.Name] {
			continue
		}
		typeName := normalizeType(v.TypeName)
		if err := s.InsertRegistryValue(keyID, string(typeName), v.Data, v.Name); err != nil {
			e.warn("inserting registry value %q of %q: %v", v.Name, key.Path(), err)
			continue
		}
		wrote = true
	}
	return wrote
}

// normalizeType maps REG_DWORD_LE to REG_DWORD; every other type string
// passes through verbatim.
func normalizeType(t winreg.ValueType) winreg.ValueType {
	if strings.EqualFold(string(t), "REG_DWORD_LE") {
		return winreg.TypeDWord
	}
	return t
}

// windowsMarkers are probed together; a hit on any of them marks the
// partition as Windows.
var windowsMarkers = []string{"/Windows/System32", "/WINNT/System32", "/WINNT35/System32", "/WTSRV/System32"}

// DetectOS probes a handful of well-known first-level paths on one partition
// and returns the OS that first matches.
func DetectOS(ctx context.Context, fs vfs.VFS, partition vfs.Partition) model.OSKind {
	if exists(ctx, fs, partition, windowsMarkers...) {
		return model.OSWindows
	}
	if exists(ctx, fs, partition, "/System/Library") {
		return model.OSMacOS
	}
	if exists(ctx, fs, partition, "/etc") {
		return model.OSLinux
	}
	return model.OSUnknown
}

func exists(ctx context.Context, fs vfs.VFS, partition vfs.Partition, templates ...string) bool {
	results, err := fs.FindPaths(ctx, templates, []vfs.Partition{partition})
	if err != nil {
		return false
	}
	return len(results) > 0
}
