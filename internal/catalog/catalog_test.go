package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blackvault/artifactresolver/internal/model"
)

const validYAML = `
- name: HostsFile
  doc: the hosts file
  supported_os: ["windows"]
  provides: ["hostsfile"]
  sources:
    - type: FILE
      attributes:
        paths: ["%SystemRoot%/System32/drivers/etc/hosts"]
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %q: %v", name, err)
	}
}

func TestLoadDirParsesArtifactDefinition(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hosts.yaml", validYAML)

	reg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	def, ok := reg.Get("HostsFile")
	if !ok {
		t.Fatal("LoadDir() did not load \"HostsFile\"")
	}
	if len(def.Sources) != 1 || def.Sources[0].Kind != model.SourceFile {
		t.Fatalf("Sources = %v, want one FILE source", def.Sources)
	}
	if len(def.SupportedOS) != 1 || def.SupportedOS[0] != model.OSWindows {
		t.Fatalf("SupportedOS = %v, want [Windows]", def.SupportedOS)
	}
}

func TestLoadDirIgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hosts.yaml", validYAML)
	writeFile(t, dir, "README.md", "not a catalogue file")

	reg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(reg.Names()) != 1 {
		t.Fatalf("Names() = %v, want exactly the one artifact from hosts.yaml", reg.Names())
	}
}

func TestLoadDirRejectsDuplicateNamesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", validYAML)
	writeFile(t, dir, "b.yaml", validYAML)

	if _, err := LoadDir(dir); err == nil {
		t.Fatal("LoadDir() with a duplicate artifact name across files = nil error, want an error")
	}
}

func TestLoadDirRejectsUnknownSourceKind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", `
- name: Bad
  sources:
    - type: NOT_A_REAL_KIND
      attributes:
        paths: ["/x"]
`)
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("LoadDir() with an unknown source kind = nil error, want an error")
	}
}

func TestLoadDirRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "noname.yaml", `
- sources:
    - type: FILE
      attributes:
        paths: ["/x"]
`)
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("LoadDir() with a missing artifact name = nil error, want an error")
	}
}

func TestValidateFileAcceptsWellFormedDocument(t *testing.T) {
	if err := ValidateFile("hosts.yaml", []byte(validYAML)); err != nil {
		t.Fatalf("ValidateFile() on a well-formed document = %v, want nil", err)
	}
}

func TestValidateFileRejectsUnknownSourceType(t *testing.T) {
	bad := `
- name: Bad
  sources:
    - type: NOT_A_REAL_KIND
      attributes:
        paths: ["/x"]
`
	if err := ValidateFile("bad.yaml", []byte(bad)); err == nil {
		t.Fatal("ValidateFile() on an unknown source type = nil, want a schema validation error")
	}
}

func TestValidateFileRejectsMissingRequiredFields(t *testing.T) {
	bad := `
- doc: "missing both name and sources"
`
	if err := ValidateFile("bad.yaml", []byte(bad)); err == nil {
		t.Fatal("ValidateFile() on a document missing required fields = nil, want a schema validation error")
	}
}
