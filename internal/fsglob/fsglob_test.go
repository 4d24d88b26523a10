package fsglob

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/blackvault/artifactresolver/internal/vfs"
)

func TestExpandSuperglobDefaultDepth(t *testing.T) {
	got := ExpandSuperglob("/Users/**/NTUSER.DAT")
	want := []string{
		"/Users/*/NTUSER.DAT",
		"/Users/*/*/NTUSER.DAT",
		"/Users/*/*/*/NTUSER.DAT",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandSuperglob() = %v, want %v", got, want)
	}
}

func TestExpandSuperglobExplicitDepth(t *testing.T) {
	got := ExpandSuperglob("/Users/**2/NTUSER.DAT")
	want := []string{
		"/Users/*/NTUSER.DAT",
		"/Users/*/*/NTUSER.DAT",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandSuperglob() = %v, want %v", got, want)
	}
}

func TestExpandSuperglobNoWildcardPassesThrough(t *testing.T) {
	got := ExpandSuperglob("/Windows/System32/drivers/etc/hosts")
	want := []string{"/Windows/System32/drivers/etc/hosts"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandSuperglob() = %v, want %v", got, want)
	}
}

// A template with no '*' or '?' at all can match at most one entry on a
// case-insensitive filesystem, per the glob engine's no-wildcard invariant.
func TestGlobFilesNoWildcardMatchesAtMostOne(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0")
	fs.PutFile("p0", "/Windows/System32/drivers/etc/hosts", []byte("x"), time.Unix(0, 0))

	e := New(fs)
	parts, _ := fs.Partitions(context.Background())
	got, err := e.GlobFiles(context.Background(), []string{"/Windows/System32/drivers/etc/hosts"}, parts)
	if err != nil {
		t.Fatalf("GlobFiles() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GlobFiles() returned %d results, want exactly 1", len(got))
	}
}

func TestGlobFilesExpandsSuperglobBeforeDelegating(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0")
	fs.PutFile("p0", "/Users/Alice/NTUSER.DAT", []byte("x"), time.Unix(0, 0))
	fs.PutFile("p0", "/Users/Bob/Sub/NTUSER.DAT", []byte("x"), time.Unix(0, 0))

	e := New(fs)
	parts, _ := fs.Partitions(context.Background())
	got, err := e.GlobFiles(context.Background(), []string{"/Users/**/NTUSER.DAT"}, parts)
	if err != nil {
		t.Fatalf("GlobFiles() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GlobFiles() returned %d results, want 2", len(got))
	}
}

func TestGlobFilesIsCaseInsensitive(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0")
	fs.PutFile("p0", "/Windows/System32/Config/SAM", []byte("x"), time.Unix(0, 0))

	e := New(fs)
	parts, _ := fs.Partitions(context.Background())
	got, err := e.GlobFiles(context.Background(), []string{"/windows/system32/config/sam"}, parts)
	if err != nil {
		t.Fatalf("GlobFiles() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GlobFiles() case-insensitive match returned %d results, want 1", len(got))
	}
}
