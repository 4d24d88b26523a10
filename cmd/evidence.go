package cmd

import (
	"context"
	"fmt"

	"github.com/blackvault/artifactresolver/internal/vfs"
	"github.com/blackvault/artifactresolver/internal/winreg"
)

// openEvidence opens the -i/--evidence paths as a VFS. A single path is
// opened as a disk image; several paths (or a single path that does not
// open as an image) are treated as plain OS directories, useful for
// exercising the resolver against a live filesystem during development.
// With no path given it returns an error.
func openEvidence(paths []string) (vfs.VFS, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no evidence path given (use -i/--evidence)")
	}
	if len(paths) == 1 {
		if img, err := vfs.OpenDiskImage(paths[0]); err == nil {
			return img, nil
		}
	}
	return vfs.NewOSFS(paths...), nil
}

// openRegistry is the driver/shell RegistryOpener used by the CLI: real
// offline hive parsing is explicitly out of scope for this core, so every
// partition gets a fresh, empty in-memory registry. REGISTRY_KEY/
// REGISTRY_VALUE sources against it resolve to nothing, which the resolver
// and extractor already treat as a normal,
// non-fatal outcome.
func openRegistry(ctx context.Context, fs vfs.VFS, partition vfs.Partition) (winreg.Registry, error) {
	return winreg.NewMemRegistry(), nil
}
