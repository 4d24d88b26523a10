package vfs

import (
	"context"
	"testing"
	"time"
)

func TestMemVFSFindPathsCaseInsensitiveExactMatch(t *testing.T) {
	fs := NewMemVFS()
	fs.AddPartition("p0")
	fs.PutFile("p0", "/Windows/System32/Config/SAM", []byte("x"), time.Unix(0, 0))

	parts, _ := fs.Partitions(context.Background())
	got, err := fs.FindPaths(context.Background(), []string{"/windows/system32/config/sam"}, parts)
	if err != nil {
		t.Fatalf("FindPaths() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FindPaths() = %d results, want 1", len(got))
	}
}

func TestMemVFSStreamCountAndAlternateStreams(t *testing.T) {
	fs := NewMemVFS()
	fs.AddPartition("p0")
	fs.PutFileStreams("p0", "/a", [][]byte{[]byte("first"), []byte("second")}, time.Unix(0, 0))

	parts, _ := fs.Partitions(context.Background())
	specs, _ := fs.FindPaths(context.Background(), []string{"/a"}, parts)
	if len(specs) != 1 {
		t.Fatalf("FindPaths() = %v, want 1 result", specs)
	}

	n, err := fs.StreamCount(context.Background(), specs[0])
	if err != nil {
		t.Fatalf("StreamCount() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("StreamCount() = %d, want 2", n)
	}

	rc, err := fs.OpenStream(context.Background(), specs[0], 1)
	if err != nil {
		t.Fatalf("OpenStream(1) error = %v", err)
	}
	defer rc.Close()
	buf := make([]byte, 6)
	n2, _ := rc.Read(buf)
	if string(buf[:n2]) != "second" {
		t.Fatalf("OpenStream(1) content = %q, want %q", buf[:n2], "second")
	}
}

func TestMemVFSOpenStreamOutOfRangeErrors(t *testing.T) {
	fs := NewMemVFS()
	fs.AddPartition("p0")
	fs.PutFile("p0", "/a", []byte("x"), time.Unix(0, 0))
	parts, _ := fs.Partitions(context.Background())
	specs, _ := fs.FindPaths(context.Background(), []string{"/a"}, parts)

	if _, err := fs.OpenStream(context.Background(), specs[0], 5); err == nil {
		t.Fatal("OpenStream() with an out-of-range index = nil error, want an error")
	}
}

func TestMemVFSStatReturnsErrorForUnknownPath(t *testing.T) {
	fs := NewMemVFS()
	fs.AddPartition("p0")
	if _, err := fs.Stat(context.Background(), memPathSpec{partition: "p0", path: "/nope"}); err == nil {
		t.Fatal("Stat() of an unknown path = nil error, want an error")
	}
}

func TestMemVFSPartitionsPreserveInsertionOrder(t *testing.T) {
	fs := NewMemVFS()
	fs.AddPartition("second")
	fs.AddPartition("first")
	parts, _ := fs.Partitions(context.Background())
	if len(parts) != 2 || parts[0].Handle != "second" || parts[1].Handle != "first" {
		t.Fatalf("Partitions() = %v, want insertion order [second first]", parts)
	}
}
