// Package kb implements the Knowledge Base: a memoised, case-preserving
// variable store whose values are computed lazily by resolving whichever
// catalogue artifacts declare themselves as a variable's provider.
package kb

import (
	"context"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/blackvault/artifactresolver/internal/expand"
	"github.com/blackvault/artifactresolver/internal/model"
)

// RegistryValueData is the raw projection of one registry value encountered
// while resolving a provider source.
type RegistryValueData struct {
	Name      string
	IsString  bool
	IsInteger bool
	Data      []byte
}

// Projection is the raw yield of resolving a single provider source. The
// Knowledge Base applies the kind-specific projection rules on top of this;
// the SourceResolver only has to hand back what it found.
type Projection struct {
	RegistryKeyPaths []string
	RegistryValues   []RegistryValueData
	Paths            []string   // relative path strings, for PATH/DIRECTORY sources
	FileLines        [][]string // one slice of lines per matched file, for FILE sources
}

// SourceResolver is the back-edge into the Artifact Resolver that the
// Knowledge Base uses to discover what a provider source actually yields on
// the current partition, without an import cycle between kb and resolver:
// the Resolver implements this interface over itself.
type SourceResolver interface {
	ResolveSource(ctx context.Context, source model.Source) (Projection, error)
}

// Logf receives warnings in the same structured-logging shape used across this module.
type Logf func(format string, args ...interface{})

// KnowledgeBase is scoped to a single partition's resolution run: its cache,
// in-flight guard, and seeded values live as long as the Resolver that
// built it, which serves one partition.
type KnowledgeBase struct {
	ctx      context.Context
	resolver SourceResolver
	expander *expand.Expander
	warn     Logf

	providerIndex map[string][]*model.ArtifactDefinition
	cache         map[string]*model.CaseSet
	inflight      map[string]bool
}

// New builds a Knowledge Base over catalogue's provider declarations. ctx is
// held for the lifetime of the Knowledge Base and used for every provider
// resolution it triggers.
func New(ctx context.Context, catalogue []*model.ArtifactDefinition, resolver SourceResolver, warn Logf) *KnowledgeBase {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	kb := &KnowledgeBase{
		ctx:           ctx,
		resolver:      resolver,
		warn:          warn,
		providerIndex: make(map[string][]*model.ArtifactDefinition),
		cache:         make(map[string]*model.CaseSet),
		inflight:      make(map[string]bool),
	}
	kb.expander = expand.New(kb.Get, warn)

	for _, def := range catalogue {
		for _, provides := range def.Provides {
			canonical := model.CanonicalizeVar(provides)
			kb.providerIndex[canonical] = append(kb.providerIndex[canonical], def)
		}
	}
	return kb
}

// Seed writes a value directly into the cache, bypassing provider
// resolution entirely. Used by the partition driver's OS bootstrap to write
// systemroot/systemdrive/userprofile/homedir ahead of any provider lookup.
func (kb *KnowledgeBase) Seed(key string, values ...string) {
	canonical := model.CanonicalizeVar(key)
	set := model.NewCaseSet(values...)
	kb.cache[canonical] = set
}

// Get returns the memoised value-set of key, computing it on first access.
// Never returns an error: unresolvable variables yield an empty slice. Get
// itself warns only on a cycle; the warning for an unresolvable token comes
// from the Expander expanding the template that needed it.
func (kb *KnowledgeBase) Get(key string) []string {
	canonical := model.CanonicalizeVar(key)
	if canonical == "" {
		return nil
	}
	if cached, ok := kb.cache[canonical]; ok {
		return cached.Values()
	}
	if kb.inflight[canonical] {
		kb.warn("cycle detected resolving variable %q, returning empty", canonical)
		return nil
	}
	kb.inflight[canonical] = true
	defer delete(kb.inflight, canonical)

	raw := kb.resolveProviders(canonical)
	if len(raw) == 0 {
		fallback := model.CanonicalizeVar("environ_" + canonical)
		if fallback != canonical {
			raw = kb.resolveProviders(fallback)
		}
	}

	final := model.NewCaseSet()
	for _, candidate := range raw {
		candidate = expand.NormalizeDriveLetter(candidate)
		if strings.ContainsAny(candidate, "%") {
			final.AddAll(kb.expander.Expand(candidate))
		} else {
			final.Add(candidate)
		}
	}

	kb.cache[canonical] = final
	return final.Values()
}

// resolveProviders finds every catalogue artifact declaring canonical as a
// provided variable, resolves each of their sources through the back-edge,
// and projects the raw yield into candidate strings using per-source-kind
// rules.
func (kb *KnowledgeBase) resolveProviders(canonical string) []string {
	defs := kb.providerIndex[canonical]
	if len(defs) == 0 {
		return nil
	}

	var out []string
	for _, def := range defs {
		for _, src := range def.Sources {
			projection, err := kb.resolver.ResolveSource(kb.ctx, src)
			if err != nil {
				kb.warn("resolving provider source for %q: %v", canonical, err)
				continue
			}
			out = append(out, project(src, projection, kb.warn)...)
		}
	}
	return out
}

func project(src model.Source, p Projection, warn Logf) []string {
	switch src.Kind {
	case model.SourceRegistryKey:
		return p.RegistryKeyPaths

	case model.SourceRegistryValue:
		var out []string
		for _, v := range p.RegistryValues {
			switch {
			case v.IsString:
				out = append(out, string(v.Data))
			case v.IsInteger:
				out = append(out, strconv.FormatUint(decodeUint(v.Data), 10))
			default:
				warn("skipping non-string/non-integer registry value %q", v.Name)
			}
		}
		return out

	case model.SourcePath, model.SourceDirectory:
		return p.Paths

	case model.SourceFile:
		var out []string
		for _, lines := range p.FileLines {
			out = append(out, strings.Join(lines, "\n"))
		}
		return out

	default:
		return nil
	}
}

func decodeUint(data []byte) uint64 {
	buf := make([]byte, 8)
	copy(buf, data)
	return binary.LittleEndian.Uint64(buf)
}
