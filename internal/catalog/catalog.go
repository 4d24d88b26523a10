// Package catalog loads artifact definitions from YAML documents into a
// name-indexed Registry, since a real catalogue loader and schema are out
// of scope for the core artifact resolution engine itself.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackvault/artifactresolver/internal/model"
)

// doc is the YAML shape of one artifact definition, as authored by
// catalogue maintainers.
type doc struct {
	Name        string     `yaml:"name"`
	Doc         string     `yaml:"doc"`
	Sources     []srcDoc   `yaml:"sources"`
	SupportedOS []string   `yaml:"supported_os"`
	Provides    []string   `yaml:"provides"`
	Conditions  []string   `yaml:"conditions"`
}

type srcDoc struct {
	Kind          string              `yaml:"type"`
	Attributes    srcAttributesDoc     `yaml:"attributes"`
	SupportedOS   []string            `yaml:"supported_os"`
}

type srcAttributesDoc struct {
	Paths         []string           `yaml:"paths"`
	Separator     string             `yaml:"separator"`
	Keys          []string           `yaml:"keys"`
	KeyValuePairs []kvPairDoc        `yaml:"key_value_pairs"`
	Names         []string           `yaml:"names"`
}

type kvPairDoc struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Registry holds every loaded artifact definition, indexed by name.
type Registry struct {
	definitions map[string]*model.ArtifactDefinition
	order       []string
}

// Definitions returns the name-indexed map of loaded artifacts, suitable for
// handing straight to a resolver.Resolver or driver.Driver.
func (r *Registry) Definitions() map[string]*model.ArtifactDefinition {
	return r.definitions
}

// Names returns every loaded artifact's name, in load order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the named artifact definition, or (nil, false).
func (r *Registry) Get(name string) (*model.ArtifactDefinition, bool) {
	d, ok := r.definitions[name]
	return d, ok
}

// LoadDir reads every *.yaml/*.yml file in dir, unmarshals one or more
// artifact definitions per file, and builds a name-indexed Registry.
// Duplicate names across files are a load error.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading directory %q: %w", dir, err)
	}

	reg := &Registry{definitions: make(map[string]*model.ArtifactDefinition)}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := reg.loadFile(path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (r *Registry) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: reading %q: %w", path, err)
	}

	var docs []doc
	if err := yaml.Unmarshal(raw, &docs); err != nil {
		return fmt.Errorf("catalog: parsing %q: %w", path, err)
	}

	for _, d := range docs {
		def, err := toDefinition(d)
		if err != nil {
			return fmt.Errorf("catalog: %q: %w", path, err)
		}
		if _, exists := r.definitions[def.Name]; exists {
			return fmt.Errorf("catalog: duplicate artifact name %q (in %q)", def.Name, path)
		}
		r.definitions[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	return nil
}

func toDefinition(d doc) (*model.ArtifactDefinition, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("artifact definition missing a name")
	}

	def := &model.ArtifactDefinition{
		Name:        d.Name,
		SupportedOS: toOSKinds(d.SupportedOS),
		Provides:    d.Provides,
		Conditions:  d.Conditions,
	}

	for _, s := range d.Sources {
		src, err := toSource(d.Name, s)
		if err != nil {
			return nil, err
		}
		def.Sources = append(def.Sources, src)
	}
	return def, nil
}

func toSource(artifactName string, s srcDoc) (model.Source, error) {
	kind := model.SourceKind(strings.ToUpper(s.Kind))
	switch kind {
	case model.SourceFile, model.SourceDirectory, model.SourcePath,
		model.SourceRegistryKey, model.SourceRegistryValue, model.SourceArtifactGroup:
		// valid
	default:
		return model.Source{}, fmt.Errorf("artifact %q: unknown source type %q", artifactName, s.Kind)
	}

	src := model.Source{
		Kind:        kind,
		Paths:       s.Attributes.Paths,
		Separator:   s.Attributes.Separator,
		Keys:        s.Attributes.Keys,
		Names:       s.Attributes.Names,
		SupportedOS: toOSKinds(s.SupportedOS),
	}
	for _, kv := range s.Attributes.KeyValuePairs {
		src.KeyValuePairs = append(src.KeyValuePairs, model.RegistryValueTemplate{Key: kv.Key, Value: kv.Value})
	}
	return src, nil
}

func toOSKinds(names []string) []model.OSKind {
	out := make([]model.OSKind, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(n) {
		case "windows":
			out = append(out, model.OSWindows)
		case "linux":
			out = append(out, model.OSLinux)
		case "darwin", "macos":
			out = append(out, model.OSMacOS)
		default:
			out = append(out, model.OSKind(n))
		}
	}
	return out
}
