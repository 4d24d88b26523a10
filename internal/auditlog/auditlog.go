// Package auditlog implements a chain-of-custody log distinct from the
// operational logger in internal/logging: every record the Extractor writes
// to the output store is also appended here, so a reviewer can answer "what
// was taken, from where, and when" without parsing the store itself.
// Adapted from a top-level logrus wrapper (logging/logger.go).
package auditlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// AuditLogger is an append-only, JSON-formatted logrus logger recording
// every record the Extractor writes.
type AuditLogger struct {
	logger *logrus.Logger
}

// Open creates (or appends to) the chain-of-custody log at path.
func Open(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(file)

	return &AuditLogger{logger: logger}, nil
}

// NewWithOutput builds an AuditLogger over an arbitrary writer, mainly for
// tests that want to capture the emitted lines.
func NewWithOutput(w io.Writer) *AuditLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(w)
	return &AuditLogger{logger: logger}
}

// RunStarted records the start of one driver run.
func (a *AuditLogger) RunStarted(catalogueDir string, evidencePaths []string, artifactNames []string) {
	a.logger.WithFields(logrus.Fields{
		"event":          "run_started",
		"catalogue_dir":  catalogueDir,
		"evidence_paths": evidencePaths,
		"artifacts":      artifactNames,
	}).Info("run started")
}

// RunFinished records the end of one driver run.
func (a *AuditLogger) RunFinished(err error) {
	fields := logrus.Fields{"event": "run_finished"}
	if err != nil {
		fields["error"] = err.Error()
		a.logger.WithFields(fields).Error("run finished with error")
		return
	}
	a.logger.WithFields(fields).Info("run finished")
}

// FileExtracted records one exported file record.
func (a *AuditLogger) FileExtracted(artifact, recordID, partition, originPath string) {
	a.logger.WithFields(logrus.Fields{
		"event":     "file_extracted",
		"artifact":  artifact,
		"record_id": recordID,
		"partition": partition,
		"origin":    originPath,
	}).Info("file extracted")
}

// RegistryKeyExtracted records one exported registry key record.
func (a *AuditLogger) RegistryKeyExtracted(artifact, keyID, keyPath string) {
	a.logger.WithFields(logrus.Fields{
		"event":    "registry_key_extracted",
		"artifact": artifact,
		"key_id":   keyID,
		"key_path": keyPath,
	}).Info("registry key extracted")
}

// RegistryValueExtracted records one exported registry value record.
func (a *AuditLogger) RegistryValueExtracted(keyID, keyPath, name, typeString string) {
	a.logger.WithFields(logrus.Fields{
		"event":    "registry_value_extracted",
		"key_id":   keyID,
		"key_path": keyPath,
		"name":     name,
		"type":     typeString,
	}).Info("registry value extracted")
}

// FileChecksummed records the checksum computed over an exported file's
// first data stream.
func (a *AuditLogger) FileChecksummed(recordID, algorithm, value string) {
	a.logger.WithFields(logrus.Fields{
		"event":     "file_checksummed",
		"record_id": recordID,
		"algorithm": algorithm,
		"checksum":  value,
	}).Info("file checksummed")
}

// Close releases the underlying file handle, if any.
func (a *AuditLogger) Close() error {
	if closer, ok := a.logger.Out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
