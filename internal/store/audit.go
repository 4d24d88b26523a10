package store

import (
	"io"
	"time"

	"github.com/blackvault/artifactresolver/internal/auditlog"
)

// auditingStore decorates a Store, mirroring every insert into the
// chain-of-custody audit log.
type auditingStore struct {
	inner   Store
	audit   *auditlog.AuditLogger
	keyPath map[string]string
}

// WithAudit wraps inner so every record insert is also recorded in audit.
func WithAudit(inner Store, audit *auditlog.AuditLogger) Store {
	return &auditingStore{inner: inner, audit: audit, keyPath: make(map[string]string)}
}

func (s *auditingStore) InsertFileRecord(artifact, name string, ts Timestamps, origin Origin) (string, error) {
	id, err := s.inner.InsertFileRecord(artifact, name, ts, origin)
	if err != nil {
		return "", err
	}
	s.audit.FileExtracted(artifact, id, origin.Partition, origin.Path)
	return id, nil
}

func (s *auditingStore) OpenExportStream(recordID, exportName string) (io.WriteCloser, error) {
	return s.inner.OpenExportStream(recordID, exportName)
}

func (s *auditingStore) InsertRegistryKey(artifact string, modified time.Time, keyPath string) (string, error) {
	id, err := s.inner.InsertRegistryKey(artifact, modified, keyPath)
	if err != nil {
		return "", err
	}
	s.keyPath[id] = keyPath
	s.audit.RegistryKeyExtracted(artifact, id, keyPath)
	return id, nil
}

func (s *auditingStore) InsertRegistryValue(keyID, typeString string, data []byte, name string) error {
	if err := s.inner.InsertRegistryValue(keyID, typeString, data, name); err != nil {
		return err
	}
	s.audit.RegistryValueExtracted(keyID, s.keyPath[keyID], name, typeString)
	return nil
}

func (s *auditingStore) RecordChecksum(fileID, algorithm, value string) error {
	if err := s.inner.RecordChecksum(fileID, algorithm, value); err != nil {
		return err
	}
	s.audit.FileChecksummed(fileID, algorithm, value)
	return nil
}

func (s *auditingStore) Close() error {
	return s.inner.Close()
}
