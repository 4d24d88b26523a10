// Package winreg defines the Windows registry collaborator contract the
// core depends on, plus an in-memory reference implementation
// used by tests and by the CLI's registry opener, and a real implementation
// (syscall_windows.go, build-tagged) backed by golang.org/x/sys/windows/registry
// that reads the local machine's registry. Parsing real offline hive
// files (NTUSER.DAT, SOFTWARE, ...) remains out of scope for the core.
package winreg

import "time"

// ValueType mirrors the registry value type strings the Extractor writes
// verbatim (after REG_DWORD_LE normalisation).
type ValueType string

const (
	TypeString      ValueType = "REG_SZ"
	TypeExpandSZ    ValueType = "REG_EXPAND_SZ"
	TypeMultiSZ     ValueType = "REG_MULTI_SZ"
	TypeDWord       ValueType = "REG_DWORD"
	TypeQWord       ValueType = "REG_QWORD"
	TypeBinary      ValueType = "REG_BINARY"
	TypeNone        ValueType = "REG_NONE"
)

// Value is one named value within a registry key.
type Value struct {
	Name     string
	Data     []byte
	TypeName ValueType
}

// IsInteger reports whether this value holds DWORD/QWORD integer data.
func (v Value) IsInteger() bool {
	return v.TypeName == TypeDWord || v.TypeName == TypeQWord
}

// IsString reports whether this value holds string-shaped data.
func (v Value) IsString() bool {
	return v.TypeName == TypeString || v.TypeName == TypeExpandSZ || v.TypeName == TypeMultiSZ
}

// Key is an opaque handle to a registry key, traversable through the
// Registry that produced it.
type Key interface {
	// Path returns the full backslash-separated key path, e.g.
	// `HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Run`.
	Path() string
}

// Registry is the contract the core requires from the registry collaborator.
type Registry interface {
	// OpenKey opens the key at path, or returns (nil, nil) if absent --
	// a missing key fails soft rather than erroring.
	OpenKey(path string) (Key, error)

	// EnumerateSubkeys lists the immediate child keys of key.
	EnumerateSubkeys(key Key) ([]Key, error)

	// EnumerateValues lists every named value directly on key.
	EnumerateValues(key Key) ([]Value, error)

	// LastWrittenTime returns the key's last-write timestamp. A zero time
	// means "absent", mapped to the UNIX epoch by the Extractor.
	LastWrittenTime(key Key) time.Time
}
