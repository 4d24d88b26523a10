// Package model holds the shared data types of the artifact resolver: the
// catalogue's artifact/source definitions, the OS kinds, and the
// case-insensitive value sets. It deliberately has no dependency on the
// resolver/expander/glob packages so every component can import it without
// creating cycles.
package model

// SourceKind discriminates the kind of a Source within an ArtifactDefinition.
type SourceKind string

const (
	SourceFile          SourceKind = "FILE"
	SourceDirectory     SourceKind = "DIRECTORY"
	SourcePath          SourceKind = "PATH"
	SourceRegistryKey   SourceKind = "REGISTRY_KEY"
	SourceRegistryValue SourceKind = "REGISTRY_VALUE"
	SourceArtifactGroup SourceKind = "ARTIFACT_GROUP"
)

// OSKind identifies the operating system detected on a partition.
type OSKind string

const (
	OSWindows OSKind = "Windows"
	OSLinux   OSKind = "Linux"
	OSMacOS   OSKind = "MacOS"
	OSUnknown OSKind = "Unknown"
)

// RegistryValueTemplate pairs a key-path template with a value-name template,
// the payload of a REGISTRY_VALUE source.
type RegistryValueTemplate struct {
	Key   string
	Value string
}

// Source is one clause inside an ArtifactDefinition.
type Source struct {
	Kind SourceKind

	// FILE / DIRECTORY / PATH payload.
	Paths     []string
	Separator string // optional; typically `\`

	// REGISTRY_KEY payload.
	Keys []string

	// REGISTRY_VALUE payload.
	KeyValuePairs []RegistryValueTemplate

	// ARTIFACT_GROUP payload.
	Names []string

	// SupportedOS restricts this source to the given OS kinds; empty means
	// "all OSes".
	SupportedOS []OSKind
}

// AppliesTo reports whether this source should be considered on a partition
// whose OS is known to be os. An empty SupportedOS always applies.
func (s Source) AppliesTo(os OSKind) bool {
	if len(s.SupportedOS) == 0 {
		return true
	}
	for _, candidate := range s.SupportedOS {
		if candidate == os {
			return true
		}
	}
	return false
}

// ArtifactDefinition is a named, declarative recipe of file-paths and/or
// registry-locations loaded once from the catalogue and treated as immutable.
type ArtifactDefinition struct {
	Name        string
	Sources     []Source
	SupportedOS []OSKind
	Provides    []string
	Conditions  []string
}

// AppliesTo reports whether this artifact is eligible for the given
// partition OS. An empty SupportedOS always applies; on an unknown OS a
// non-empty SupportedOS still applies (the caller should warn and proceed
// optimistically, per spec).
func (a ArtifactDefinition) AppliesTo(os OSKind) bool {
	if len(a.SupportedOS) == 0 {
		return true
	}
	if os == OSUnknown {
		return true
	}
	for _, candidate := range a.SupportedOS {
		if candidate == os {
			return true
		}
	}
	return false
}

// Provider reports whether this artifact declares that it provides the given
// canonical variable name.
func (a ArtifactDefinition) Provider(canonicalName string) bool {
	for _, p := range a.Provides {
		if CanonicalizeVar(p) == canonicalName {
			return true
		}
	}
	return false
}
