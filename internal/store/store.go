// Package store implements the output store contract: a structured record
// database with streamed blob attachments, built directly on stdlib
// encoding/json and file I/O, with github.com/google/uuid minting record
// identifiers.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Timestamps bundles the three UTC timestamps carried on a file record.
type Timestamps struct {
	Accessed time.Time
	Modified time.Time
	Created  time.Time
}

// Origin identifies where a file record came from.
type Origin struct {
	Path      string
	Partition string
}

// FileRecord is one exported file/stream's metadata, as written to the
// index.
type FileRecord struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Artifact   string     `json:"artifact"`
	Name       string     `json:"name"`
	Timestamps Timestamps `json:"timestamps"`
	Origin     Origin     `json:"origin"`
}

// RegistryKeyRecord is one registry key's metadata, as written to the index.
type RegistryKeyRecord struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Artifact string    `json:"artifact"`
	Modified time.Time `json:"modified"`
	KeyPath  string    `json:"key_path"`
}

// RegistryValueRecord is one registry value, attached to a RegistryKeyRecord
// by KeyID, as written to the index.
type RegistryValueRecord struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	KeyID  string `json:"key_id"`
	Type   string `json:"type"`
	Data   []byte `json:"data"`
	Name   string `json:"name"`
}

// ChecksumRecord attaches a hash of a file record's first data stream,
// written as its own index line since the checksum is only known once the
// stream has been fully copied.
type ChecksumRecord struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	FileID    string `json:"file_id"`
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Store is the contract the Extractor writes through.
type Store interface {
	InsertFileRecord(artifact, name string, ts Timestamps, origin Origin) (string, error)
	OpenExportStream(recordID, exportName string) (io.WriteCloser, error)
	InsertRegistryKey(artifact string, modified time.Time, keyPath string) (string, error)
	InsertRegistryValue(keyID, typeString string, data []byte, name string) error
	RecordChecksum(fileID, algorithm, value string) error
	Close() error
}

// JSONStore is a Store backed by one append-only JSON-lines index file plus
// one blob file per exported stream, all under Dir.
type JSONStore struct {
	dir   string
	mu    sync.Mutex
	index *os.File
	enc   *json.Encoder
}

// Open creates dir if needed, opens its index for appending (records from
// earlier runs are kept) and returns a ready-to-use JSONStore.
func Open(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating output directory %q: %w", dir, err)
	}
	indexPath := filepath.Join(dir, "index.jsonl")
	f, err := os.OpenFile(indexPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: opening index %q: %w", indexPath, err)
	}
	return &JSONStore{dir: dir, index: f, enc: json.NewEncoder(f)}, nil
}

func (s *JSONStore) writeLine(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(v)
}

// InsertFileRecord mints a new record id and appends the file's metadata to
// the index. The caller then opens an export stream against the returned id
// to write the blob.
func (s *JSONStore) InsertFileRecord(artifact, name string, ts Timestamps, origin Origin) (string, error) {
	id := uuid.NewString()
	rec := FileRecord{ID: id, Kind: "file", Artifact: artifact, Name: name, Timestamps: ts, Origin: origin}
	if err := s.writeLine(rec); err != nil {
		return "", err
	}
	return id, nil
}

// OpenExportStream opens a writer for recordID's exportName blob (e.g.
// "name" for the first stream, "name-1" for the second), chunked by the
// caller.
func (s *JSONStore) OpenExportStream(recordID, exportName string) (io.WriteCloser, error) {
	blobDir := filepath.Join(s.dir, "blobs", recordID)
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating blob directory for %q: %w", recordID, err)
	}
	path := filepath.Join(blobDir, exportName)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("store: creating export blob %q: %w", path, err)
	}
	return f, nil
}

// InsertRegistryKey mints a new key record id and appends its metadata.
func (s *JSONStore) InsertRegistryKey(artifact string, modified time.Time, keyPath string) (string, error) {
	id := uuid.NewString()
	rec := RegistryKeyRecord{ID: id, Kind: "registry_key", Artifact: artifact, Modified: modified, KeyPath: keyPath}
	if err := s.writeLine(rec); err != nil {
		return "", err
	}
	return id, nil
}

// InsertRegistryValue appends one value record attached to keyID.
func (s *JSONStore) InsertRegistryValue(keyID, typeString string, data []byte, name string) error {
	if name == "" {
		name = "(Default)"
	}
	id := uuid.NewString()
	rec := RegistryValueRecord{ID: id, Kind: "registry_value", KeyID: keyID, Type: typeString, Data: data, Name: name}
	return s.writeLine(rec)
}

// RecordChecksum appends a checksum record attached to fileID.
func (s *JSONStore) RecordChecksum(fileID, algorithm, value string) error {
	id := uuid.NewString()
	rec := ChecksumRecord{ID: id, Kind: "checksum", FileID: fileID, Algorithm: algorithm, Value: value}
	return s.writeLine(rec)
}

// Close finalises the index. JSON-lines needs no separate index build, so
// this just closes the underlying file handle.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}
