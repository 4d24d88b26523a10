// Package driver implements the partition driver: it enumerates partitions,
// filters out volume-shadow snapshots, bootstraps each partition's OS
// context, builds a Resolver per partition, and runs the requested artifact
// names through the Extractor into a shared Store.
package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackvault/artifactresolver/internal/extractor"
	"github.com/blackvault/artifactresolver/internal/model"
	"github.com/blackvault/artifactresolver/internal/resolver"
	"github.com/blackvault/artifactresolver/internal/store"
	"github.com/blackvault/artifactresolver/internal/vfs"
	"github.com/blackvault/artifactresolver/internal/winreg"
)

// Logf receives warnings/info in the same structured-logging shape used across this module.
type Logf func(format string, args ...interface{})

// RegistryOpener builds the registry collaborator for one partition, or
// returns (nil, nil) if the partition carries no registry-bearing
// filesystem (e.g. non-Windows). Per-partition mappings are passed by
// value rather than through mutated global state.
type RegistryOpener func(ctx context.Context, fs vfs.VFS, partition vfs.Partition) (winreg.Registry, error)

// Driver orchestrates one evidence image's worth of partitions.
type Driver struct {
	fs        vfs.VFS
	catalogue map[string]*model.ArtifactDefinition
	openReg   RegistryOpener
	store     store.Store
	checksum  string
	warn      Logf
	info      Logf
	// TestMode re-raises per-partition errors instead of logging and
	// continuing, so a test harness sees the underlying failure directly.
	TestMode bool
}

// New builds a Driver. openReg may be nil, in which case no partition gets a
// registry collaborator (registry sources fail soft throughout).
// checksumAlgorithm is forwarded to each partition's Extractor.
func New(fs vfs.VFS, catalogue map[string]*model.ArtifactDefinition, openReg RegistryOpener, s store.Store, checksumAlgorithm string, warn, info Logf) *Driver {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	if info == nil {
		info = func(string, ...interface{}) {}
	}
	return &Driver{fs: fs, catalogue: catalogue, openReg: openReg, store: s, checksum: checksumAlgorithm, warn: warn, info: info}
}

// Run processes every name in artifactNames against every non-VSS partition
// of the mounted evidence. It returns an error when Partitions() fails,
// when no non-VSS partition is found, or, in TestMode, on the first
// per-partition failure; otherwise per-partition failures are logged and
// skipped. A cancelled ctx stops a partition between artifact names.
func (d *Driver) Run(ctx context.Context, artifactNames []string) error {
	partitions, err := d.fs.Partitions(ctx)
	if err != nil {
		return fmt.Errorf("driver: enumerating partitions: %w", err)
	}

	usable := 0
	for _, part := range partitions {
		if part.HasIndicator(vfs.TypeIndicatorVolumeShadow) {
			d.info("skipping volume-shadow-snapshot partition %q", part.Handle)
			continue
		}
		usable++
		if err := d.processPartition(ctx, part, artifactNames); err != nil {
			if d.TestMode {
				return err
			}
			d.warn("partition %q failed: %v", part.Handle, err)
		}
	}

	if usable == 0 {
		return fmt.Errorf("driver: no usable filesystem found in evidence")
	}
	return nil
}

func (d *Driver) processPartition(ctx context.Context, part vfs.Partition, artifactNames []string) error {
	osKind := extractor.DetectOS(ctx, d.fs, part)
	d.info("partition %q detected as %s", part.Handle, osKind)

	var reg winreg.Registry
	if d.openReg != nil {
		var err error
		reg, err = d.openReg(ctx, d.fs, part)
		if err != nil {
			return fmt.Errorf("opening registry collaborator for %q: %w", part.Handle, err)
		}
	}

	r := resolver.New(ctx, d.catalogue, part, osKind, d.fs, reg, resolver.Logf(d.warn))
	bootstrapOS(ctx, r.KnowledgeBase(), d.fs, reg, part, osKind)

	ex := extractor.New(d.fs, reg, part.Handle, d.checksum, extractor.Logf(d.warn), extractor.Logf(d.info))

	for _, name := range artifactNames {
		if err := ctx.Err(); err != nil {
			return err
		}
		ra := r.Resolve(ctx, name)
		if ra == nil {
			continue
		}
		wrote := ex.Extract(ctx, ra, d.store)
		d.info("artifact %q on partition %q: wrote=%v", name, part.Handle, wrote)
	}
	return nil
}

// bootstrapOS seeds the Knowledge Base with the variables the rest of the
// catalogue expects to already exist: systemroot/systemdrive from OS
// detection, and per-user userprofile/homedir from the Windows ProfileList
// enumeration.
func bootstrapOS(ctx context.Context, kb interface{ Seed(string, ...string) }, fs vfs.VFS, reg winreg.Registry, part vfs.Partition, osKind model.OSKind) {
	kb.Seed("systemdrive", "/")

	switch osKind {
	case model.OSWindows:
		if root, ok := findSystemRoot(ctx, fs, part); ok {
			kb.Seed("systemroot", root)
		}
		if reg != nil {
			seedUsers(kb, reg)
		}
	case model.OSMacOS, model.OSLinux:
		kb.Seed("systemroot", "/")
	}
}

func findSystemRoot(ctx context.Context, fs vfs.VFS, part vfs.Partition) (string, bool) {
	for _, candidate := range []string{"/Windows", "/WINNT", "/WINNT35", "/WTSRV"} {
		results, err := fs.FindPaths(ctx, []string{candidate}, []vfs.Partition{part})
		if err == nil && len(results) > 0 {
			return candidate, true
		}
	}
	return "", false
}

// seedUsers enumerates HKLM\SOFTWARE\Microsoft\Windows NT\CurrentVersion\
// ProfileList and seeds userprofile/homedir with every discovered
// profile path.
func seedUsers(kb interface{ Seed(string, ...string) }, reg winreg.Registry) {
	const profileListPath = `HKLM\SOFTWARE\Microsoft\Windows NT\CurrentVersion\ProfileList`

	key, err := reg.OpenKey(profileListPath)
	if err != nil || key == nil {
		return
	}

	subkeys, err := reg.EnumerateSubkeys(key)
	if err != nil {
		return
	}

	var profiles []string
	for _, sid := range subkeys {
		values, err := reg.EnumerateValues(sid)
		if err != nil {
			continue
		}
		for _, v := range values {
			if strings.EqualFold(v.Name, "ProfileImagePath") {
				profiles = append(profiles, normalizeProfilePath(string(v.Data)))
			}
		}
	}

	if len(profiles) > 0 {
		kb.Seed("userprofile", profiles...)
		kb.Seed("homedir", profiles...)
	}
}

// normalizeProfilePath strips a leading drive letter and normalises
// backslashes to forward slashes.
func normalizeProfilePath(p string) string {
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
