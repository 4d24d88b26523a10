package auditlog

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(buf)
	var lines []map[string]interface{}
	for dec.More() {
		var line map[string]interface{}
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decoding audit line: %v", err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestRunStartedRecordsEventAndFields(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithOutput(&buf)
	a.RunStarted("/catalogue", []string{"/evidence/disk.img"}, []string{"HostsFile"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("recorded %d lines, want 1", len(lines))
	}
	if lines[0]["event"] != "run_started" {
		t.Errorf("event = %v, want %q", lines[0]["event"], "run_started")
	}
	if lines[0]["catalogue_dir"] != "/catalogue" {
		t.Errorf("catalogue_dir = %v, want %q", lines[0]["catalogue_dir"], "/catalogue")
	}
}

func TestRunFinishedRecordsErrorField(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithOutput(&buf)
	a.RunFinished(errBoom{})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("recorded %d lines, want 1", len(lines))
	}
	if lines[0]["error"] != "boom" {
		t.Errorf("error = %v, want %q", lines[0]["error"], "boom")
	}
	if lines[0]["level"] != "error" {
		t.Errorf("level = %v, want %q", lines[0]["level"], "error")
	}
}

func TestRunFinishedWithoutErrorLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithOutput(&buf)
	a.RunFinished(nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("recorded %d lines, want 1", len(lines))
	}
	if _, hasError := lines[0]["error"]; hasError {
		t.Error("RunFinished(nil) recorded an error field, want none")
	}
	if lines[0]["level"] != "info" {
		t.Errorf("level = %v, want %q", lines[0]["level"], "info")
	}
}

func TestFileExtractedRecordsOriginAndRecordID(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithOutput(&buf)
	a.FileExtracted("HostsFile", "rec-1", "c", "/Windows/System32/drivers/etc/hosts")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("recorded %d lines, want 1", len(lines))
	}
	if lines[0]["record_id"] != "rec-1" || lines[0]["origin"] != "/Windows/System32/drivers/etc/hosts" {
		t.Fatalf("line = %v, missing expected record_id/origin", lines[0])
	}
}

func TestRegistryKeyAndValueExtractedCorrelateByKeyPath(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithOutput(&buf)
	a.RegistryKeyExtracted("Autoruns", "key-1", `HKLM\SOFTWARE\Run`)
	a.RegistryValueExtracted("key-1", `HKLM\SOFTWARE\Run`, "Updater", "REG_SZ")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("recorded %d lines, want 2", len(lines))
	}
	if lines[1]["key_path"] != lines[0]["key_path"] {
		t.Fatalf("registry value key_path = %v, want it to match the key's path %v", lines[1]["key_path"], lines[0]["key_path"])
	}
}

func TestFileChecksummedRecordsAlgorithmAndValue(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithOutput(&buf)
	a.FileChecksummed("rec-1", "sha256", "deadbeef")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("recorded %d lines, want 1", len(lines))
	}
	if lines[0]["record_id"] != "rec-1" || lines[0]["algorithm"] != "sha256" || lines[0]["checksum"] != "deadbeef" {
		t.Fatalf("line = %v, missing expected record_id/algorithm/checksum", lines[0])
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
