package catalog

import (
	"fmt"
	"strings"

	"github.com/blackvault/artifactresolver/internal/model"
)

// GenerateDoc renders one artifact's markdown documentation page, adapted
// from the command-help generator in internal/registry.GenerateHelp to the
// artifact-catalogue domain.
func (r *Registry) GenerateDoc(name string) string {
	def, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("Artifact %q not found", name)
	}

	var doc strings.Builder

	doc.WriteString(fmt.Sprintf("# %s\n\n", def.Name))

	if len(def.SupportedOS) > 0 {
		doc.WriteString("Supported OS: ")
		doc.WriteString(joinOSKinds(def.SupportedOS))
		doc.WriteString("\n\n")
	}

	if len(def.Provides) > 0 {
		doc.WriteString("Provides:\n")
		for _, p := range def.Provides {
			doc.WriteString(fmt.Sprintf("  - %s\n", p))
		}
		doc.WriteString("\n")
	}

	if len(def.Sources) > 0 {
		doc.WriteString("Sources:\n")
		for _, s := range def.Sources {
			doc.WriteString(fmt.Sprintf("  - %s", s.Kind))
			if len(s.SupportedOS) > 0 {
				doc.WriteString(fmt.Sprintf(" (%s)", joinOSKinds(s.SupportedOS)))
			}
			doc.WriteString("\n")
			for _, p := range s.Paths {
				doc.WriteString(fmt.Sprintf("      %s\n", p))
			}
			for _, k := range s.Keys {
				doc.WriteString(fmt.Sprintf("      %s\n", k))
			}
			for _, kv := range s.KeyValuePairs {
				doc.WriteString(fmt.Sprintf("      %s \\ %s\n", kv.Key, kv.Value))
			}
			for _, n := range s.Names {
				doc.WriteString(fmt.Sprintf("      -> %s\n", n))
			}
		}
		doc.WriteString("\n")
	}

	if len(def.Conditions) > 0 {
		doc.WriteString("Conditions:\n")
		doc.WriteString(fmt.Sprintf("  %s\n", strings.Join(def.Conditions, ", ")))
		doc.WriteString("\n")
	}

	return doc.String()
}

// GenerateIndex renders a one-line-per-artifact table of contents, sorted
// by load order, in the same flat-listing style as GenerateUsage.
func (r *Registry) GenerateIndex() string {
	var out strings.Builder
	out.WriteString("# Artifact Catalogue\n\n")
	for _, name := range r.Names() {
		def := r.definitions[name]
		out.WriteString(fmt.Sprintf("- **%s**", name))
		if len(def.SupportedOS) > 0 {
			out.WriteString(fmt.Sprintf(" (%s)", joinOSKinds(def.SupportedOS)))
		}
		out.WriteString("\n")
	}
	return out.String()
}

func joinOSKinds(kinds []model.OSKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
