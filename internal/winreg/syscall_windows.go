//go:build windows

package winreg

import (
	"strings"
	"time"

	"golang.org/x/sys/windows/registry"
)

// liveKey is the Key implementation for LiveRegistry.
type liveKey struct {
	path string
	hkey registry.Key
}

func (k liveKey) Path() string { return k.path }

var rootKeys = map[string]registry.Key{
	"HKLM":                registry.LOCAL_MACHINE,
	"HKEY_LOCAL_MACHINE":  registry.LOCAL_MACHINE,
	"HKCU":                registry.CURRENT_USER,
	"HKEY_CURRENT_USER":   registry.CURRENT_USER,
	"HKU":                 registry.USERS,
	"HKEY_USERS":          registry.USERS,
	"HKCR":                registry.CLASSES_ROOT,
	"HKEY_CLASSES_ROOT":   registry.CLASSES_ROOT,
}

// LiveRegistry backs the Registry contract with the real local-machine
// registry, via golang.org/x/sys/windows/registry. Neither the CLI nor the
// interactive shell constructs it, and it is never used against offline
// evidence, since this
// core does not parse raw hive files -- that parser is an out-of-scope
// collaborator.
type LiveRegistry struct{}

// NewLiveRegistry constructs a Registry backed by the running machine's
// registry.
func NewLiveRegistry() *LiveRegistry { return &LiveRegistry{} }

func splitRoot(path string) (registry.Key, string, bool) {
	parts := strings.SplitN(strings.Trim(path, `\`), `\`, 2)
	root, ok := rootKeys[strings.ToUpper(parts[0])]
	if !ok {
		return 0, "", false
	}
	if len(parts) == 1 {
		return root, "", true
	}
	return root, parts[1], true
}

func (r *LiveRegistry) OpenKey(path string) (Key, error) {
	root, sub, ok := splitRoot(path)
	if !ok {
		return nil, nil
	}
	hkey, err := registry.OpenKey(root, sub, registry.READ)
	if err != nil {
		// Fail soft: missing keys are not errors here.
		return nil, nil
	}
	return liveKey{path: strings.Trim(path, `\`), hkey: hkey}, nil
}

func (r *LiveRegistry) EnumerateSubkeys(key Key) ([]Key, error) {
	lk, ok := key.(liveKey)
	if !ok {
		return nil, nil
	}
	names, err := lk.hkey.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}
	out := make([]Key, 0, len(names))
	for _, name := range names {
		sub, err := registry.OpenKey(lk.hkey, name, registry.READ)
		if err != nil {
			continue
		}
		out = append(out, liveKey{path: lk.path + `\` + name, hkey: sub})
	}
	return out, nil
}

func (r *LiveRegistry) EnumerateValues(key Key) ([]Value, error) {
	lk, ok := key.(liveKey)
	if !ok {
		return nil, nil
	}
	names, err := lk.hkey.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, len(names))
	for _, name := range names {
		_, valtype, err := lk.hkey.GetValue(name, nil)
		if err != nil {
			continue
		}
		v := Value{Name: name}
		switch valtype {
		case registry.SZ:
			s, _, _ := lk.hkey.GetStringValue(name)
			v.Data = []byte(s)
			v.TypeName = TypeString
		case registry.EXPAND_SZ:
			s, _, _ := lk.hkey.GetStringValue(name)
			v.Data = []byte(s)
			v.TypeName = TypeExpandSZ
		case registry.MULTI_SZ:
			ss, _, _ := lk.hkey.GetStringsValue(name)
			v.Data = []byte(strings.Join(ss, "\x00"))
			v.TypeName = TypeMultiSZ
		case registry.DWORD:
			n, _, _ := lk.hkey.GetIntegerValue(name)
			v.Data = uint64ToBytes(n)
			v.TypeName = TypeDWord
		case registry.QWORD:
			n, _, _ := lk.hkey.GetIntegerValue(name)
			v.Data = uint64ToBytes(n)
			v.TypeName = TypeQWord
		case registry.BINARY:
			b, _, _ := lk.hkey.GetBinaryValue(name)
			v.Data = b
			v.TypeName = TypeBinary
		default:
			v.TypeName = TypeNone
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *LiveRegistry) LastWrittenTime(key Key) time.Time {
	lk, ok := key.(liveKey)
	if !ok {
		return time.Time{}
	}
	info, err := lk.hkey.Stat()
	if err != nil {
		return time.Time{}
	}
	return info.ModTime().UTC()
}

func uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(n >> (8 * i))
	}
	return b
}
