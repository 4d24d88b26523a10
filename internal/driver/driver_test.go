package driver

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/blackvault/artifactresolver/internal/model"
	"github.com/blackvault/artifactresolver/internal/store"
	"github.com/blackvault/artifactresolver/internal/vfs"
	"github.com/blackvault/artifactresolver/internal/winreg"
)

type nullStore struct{}

func (nullStore) InsertFileRecord(artifact, name string, ts store.Timestamps, origin store.Origin) (string, error) {
	return "id", nil
}
func (nullStore) OpenExportStream(recordID, exportName string) (io.WriteCloser, error) {
	return discardWriteCloser{}, nil
}
func (nullStore) InsertRegistryKey(artifact string, modified time.Time, keyPath string) (string, error) {
	return "id", nil
}
func (nullStore) InsertRegistryValue(keyID, typeString string, data []byte, name string) error {
	return nil
}
func (nullStore) RecordChecksum(fileID, algorithm, value string) error { return nil }
func (nullStore) Close() error                                        { return nil }

type discardWriteCloser struct{}

func (discardWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriteCloser) Close() error                { return nil }

func TestRunSkipsVolumeShadowPartitions(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0", vfs.TypeIndicatorFileSystem)
	fs.AddPartition("p1-vss", vfs.TypeIndicatorVolumeShadow, vfs.TypeIndicatorFileSystem)
	fs.PutDir("p0", "/etc")
	fs.PutDir("p1-vss", "/etc")

	var processed []string
	info := func(format string, args ...interface{}) {
		processed = append(processed, fmt.Sprintf(format, args...))
	}

	d := New(fs, map[string]*model.ArtifactDefinition{}, nil, nullStore{}, "sha256", nil, info)
	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, line := range processed {
		if containsVSS(line) && !containsSkipping(line) {
			t.Fatalf("Run() processed the volume-shadow partition: %q", line)
		}
	}
}

func containsVSS(s string) bool      { return contains(s, "p1-vss") }
func containsSkipping(s string) bool { return contains(s, "skipping") }
func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestRunReturnsErrorWhenNoUsablePartition(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0-vss", vfs.TypeIndicatorVolumeShadow, vfs.TypeIndicatorFileSystem)

	d := New(fs, map[string]*model.ArtifactDefinition{}, nil, nullStore{}, "sha256", nil, nil)
	if err := d.Run(context.Background(), nil); err == nil {
		t.Fatal("Run() with only a volume-shadow partition = nil error, want an error")
	}
}

type alwaysFailOpener struct{}

func (alwaysFailOpener) fn(ctx context.Context, fs vfs.VFS, partition vfs.Partition) (winreg.Registry, error) {
	return nil, fmt.Errorf("boom")
}

func TestRunTestModeReRaisesPartitionError(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0")
	fs.PutDir("p0", "/etc")

	opener := alwaysFailOpener{}
	d := New(fs, map[string]*model.ArtifactDefinition{}, opener.fn, nullStore{}, "sha256", nil, nil)
	d.TestMode = true

	err := d.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("Run() in TestMode with a failing registry opener = nil error, want it re-raised")
	}
}

func TestRunNonTestModeToleratesPartitionError(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0")
	fs.PutDir("p0", "/etc")

	opener := alwaysFailOpener{}
	d := New(fs, map[string]*model.ArtifactDefinition{}, opener.fn, nullStore{}, "sha256", nil, nil)

	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run() outside TestMode with a failing registry opener = %v, want nil (logged and skipped)", err)
	}
}

func TestBootstrapOSSeedsSystemRootForWindows(t *testing.T) {
	fs := vfs.NewMemVFS()
	fs.AddPartition("p0")
	fs.PutDir("p0", "/Windows")
	part := vfs.Partition{Handle: "p0"}

	seeded := map[string][]string{}
	kb := seedRecorder{seeded: seeded}
	bootstrapOS(context.Background(), kb, fs, nil, part, model.OSWindows)

	if got := seeded["systemroot"]; len(got) != 1 || got[0] != "/Windows" {
		t.Fatalf("systemroot seed = %v, want [\"/Windows\"]", got)
	}
}

func TestBootstrapOSSeedsUserProfilesFromRegistry(t *testing.T) {
	reg := winreg.NewMemRegistry()
	const profileList = `HKLM\SOFTWARE\Microsoft\Windows NT\CurrentVersion\ProfileList`
	reg.AddValue(profileList+`\S-1-5-21-1`, winreg.Value{Name: "ProfileImagePath", TypeName: winreg.TypeString, Data: []byte(`C:\Users\Alice`)})

	seeded := map[string][]string{}
	kb := seedRecorder{seeded: seeded}
	seedUsers(kb, reg)

	got := seeded["userprofile"]
	if len(got) != 1 || got[0] != "/Users/Alice" {
		t.Fatalf("userprofile seed = %v, want [\"/Users/Alice\"]", got)
	}
	if hd := seeded["homedir"]; len(hd) != 1 || hd[0] != "/Users/Alice" {
		t.Fatalf("homedir seed = %v, want [\"/Users/Alice\"]", hd)
	}
}

type seedRecorder struct {
	seeded map[string][]string
}

func (s seedRecorder) Seed(key string, values ...string) {
	s.seeded[key] = values
}

func TestNormalizeProfilePathStripsDriveLetter(t *testing.T) {
	cases := map[string]string{
		`C:\Users\Alice`: "/Users/Alice",
		`/already/unix`:  "/already/unix",
	}
	for in, want := range cases {
		if got := normalizeProfilePath(in); got != want {
			t.Errorf("normalizeProfilePath(%q) = %q, want %q", in, got, want)
		}
	}
}
