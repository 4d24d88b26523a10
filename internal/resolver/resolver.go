// Package resolver implements the Artifact Resolver orchestrator: it
// expands artifact source templates, dispatches each to the appropriate
// glob engine, and assembles the results into a ResolvedArtifact.
// It also answers the Knowledge Base's back-edge (kb.SourceResolver) so a
// provider artifact's single source can be resolved without a cycle between
// this package and internal/kb.
package resolver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/blackvault/artifactresolver/internal/expand"
	"github.com/blackvault/artifactresolver/internal/fsglob"
	"github.com/blackvault/artifactresolver/internal/kb"
	"github.com/blackvault/artifactresolver/internal/model"
	"github.com/blackvault/artifactresolver/internal/regglob"
	"github.com/blackvault/artifactresolver/internal/vfs"
	"github.com/blackvault/artifactresolver/internal/winreg"
)

// RegistryValueMatch is one matched (key, value-name) pair from a
// REGISTRY_VALUE source.
type RegistryValueMatch struct {
	Key        winreg.Key
	ValueNames []string
}

// ResolvedArtifact is the concrete result of resolving an ArtifactDefinition
// against a partition: six collections of handles, plus any sub-artifacts
// pulled in through ARTIFACT_GROUP sources.
type ResolvedArtifact struct {
	Definition *model.ArtifactDefinition

	Files []vfs.PathSpec
	Dirs  []vfs.PathSpec
	Paths []vfs.PathSpec

	RegistryKeys   []winreg.Key
	RegistryValues []RegistryValueMatch

	SubArtifacts []*ResolvedArtifact
}

// Empty reports whether every one of the six collections is empty.
// Emptiness is not an error; the Extractor treats it as a no-op.
func (r *ResolvedArtifact) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Files) == 0 && len(r.Dirs) == 0 && len(r.Paths) == 0 &&
		len(r.RegistryKeys) == 0 && len(r.RegistryValues) == 0 && len(r.SubArtifacts) == 0
}

// Logf receives warnings in the same structured-logging shape used across this module.
type Logf func(format string, args ...interface{})

// Resolver orchestrates the Path Expander and both glob engines against one
// partition's VFS/registry collaborators.
type Resolver struct {
	catalogue map[string]*model.ArtifactDefinition
	partition vfs.Partition
	osKind    model.OSKind

	fs  vfs.VFS
	reg winreg.Registry

	fsEngine  *fsglob.Engine
	regEngine *regglob.Engine
	kb        *kb.KnowledgeBase
	expander  *expand.Expander

	warn Logf
}

// New builds a Resolver scoped to one partition. catalogue maps artifact
// name to definition. reg may be nil when the partition has no
// registry-bearing filesystem (e.g. a non-Windows partition); registry
// sources then fail soft. fs must not be nil.
func New(ctx context.Context, catalogue map[string]*model.ArtifactDefinition, partition vfs.Partition, osKind model.OSKind, fs vfs.VFS, reg winreg.Registry, warn Logf) *Resolver {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}

	defs := make([]*model.ArtifactDefinition, 0, len(catalogue))
	for _, d := range catalogue {
		defs = append(defs, d)
	}

	r := &Resolver{
		catalogue: catalogue,
		partition: partition,
		osKind:    osKind,
		fs:        fs,
		reg:       reg,
		fsEngine:  fsglob.New(fs),
		warn:      warn,
	}
	if reg != nil {
		r.regEngine = regglob.New(reg, regglob.Logf(warn))
	}
	r.kb = kb.New(ctx, defs, r, kb.Logf(warn))
	r.expander = expand.New(r.kb.Get, warn)
	return r
}

// KnowledgeBase exposes the Resolver's Knowledge Base, e.g. for the
// interactive shell's "var" command.
func (r *Resolver) KnowledgeBase() *kb.KnowledgeBase { return r.kb }

// Resolve resolves the named artifact against this Resolver's partition,
// returning nil if the artifact is unknown or not applicable to the
// partition OS.
func (r *Resolver) Resolve(ctx context.Context, name string) *ResolvedArtifact {
	def, ok := r.catalogue[name]
	if !ok {
		r.warn("unknown artifact %q", name)
		return nil
	}
	if !def.AppliesTo(r.osKind) {
		r.warn("artifact %q is not supported on OS %s", name, r.osKind)
		return nil
	}
	if r.osKind == model.OSUnknown && len(def.SupportedOS) > 0 {
		r.warn("attempting optimistic resolution of %q, partition OS is unknown", name)
	}
	return r.resolveDefinition(ctx, def)
}

func (r *Resolver) resolveDefinition(ctx context.Context, def *model.ArtifactDefinition) *ResolvedArtifact {
	out := &ResolvedArtifact{Definition: def}

	for _, src := range def.Sources {
		if !src.AppliesTo(r.osKind) {
			continue
		}
		r.dispatch(ctx, src, out)
	}

	return out
}

func (r *Resolver) dispatch(ctx context.Context, src model.Source, out *ResolvedArtifact) {
	switch src.Kind {
	case model.SourceFile:
		out.Files = append(out.Files, r.globFiles(ctx, src)...)

	case model.SourceDirectory:
		out.Dirs = append(out.Dirs, r.globFiles(ctx, src)...)

	case model.SourcePath:
		out.Paths = append(out.Paths, r.globFiles(ctx, src)...)

	case model.SourceRegistryKey:
		if r.regEngine == nil {
			return
		}
		for _, tmpl := range src.Keys {
			for _, expanded := range r.expander.Expand(tmpl) {
				keys, err := r.regEngine.GlobKeys(expanded, false)
				if err != nil {
					r.warn("globbing registry key template %q: %v", expanded, err)
					continue
				}
				out.RegistryKeys = append(out.RegistryKeys, keys...)
			}
		}

	case model.SourceRegistryValue:
		if r.regEngine == nil {
			return
		}
		for _, pair := range src.KeyValuePairs {
			for _, expandedKey := range r.expander.Expand(pair.Key) {
				keys, err := r.regEngine.GlobKeys(expandedKey, false)
				if err != nil {
					r.warn("globbing registry key template %q: %v", expandedKey, err)
					continue
				}
				for _, key := range keys {
					names, err := r.regEngine.GlobValues(key, pair.Value)
					if err != nil {
						r.warn("globbing values of %q against %q: %v", key.Path(), pair.Value, err)
						continue
					}
					if len(names) == 0 {
						continue
					}
					out.RegistryValues = append(out.RegistryValues, RegistryValueMatch{Key: key, ValueNames: names})
				}
			}
		}

	case model.SourceArtifactGroup:
		for _, childName := range src.Names {
			child := r.Resolve(ctx, childName)
			if child == nil {
				r.warn("artifact group member %q could not be resolved, skipping", childName)
				continue
			}
			out.SubArtifacts = append(out.SubArtifacts, child)
		}
	}
}

func (r *Resolver) globFiles(ctx context.Context, src model.Source) []vfs.PathSpec {
	var templates []string
	for _, tmpl := range src.Paths {
		templates = append(templates, r.expander.Expand(tmpl)...)
	}
	if len(templates) == 0 {
		return nil
	}
	results, err := r.fsEngine.GlobFiles(ctx, templates, []vfs.Partition{r.partition})
	if err != nil {
		r.warn("globbing file templates %v: %v", templates, err)
		return nil
	}
	return results
}

// ResolveSource implements kb.SourceResolver: it answers the Knowledge
// Base's "what does this one provider source yield" question by running the
// same dispatch the full resolver uses, then reading the underlying
// file/registry-value content the Knowledge Base needs to project a
// variable value.
func (r *Resolver) ResolveSource(ctx context.Context, src model.Source) (kb.Projection, error) {
	if !src.AppliesTo(r.osKind) {
		return kb.Projection{}, nil
	}

	var out kb.Projection

	switch src.Kind {
	case model.SourceRegistryKey:
		if r.regEngine == nil {
			return out, nil
		}
		for _, tmpl := range src.Keys {
			for _, expanded := range r.expander.Expand(tmpl) {
				keys, err := r.regEngine.GlobKeys(expanded, false)
				if err != nil {
					return out, err
				}
				for _, key := range keys {
					out.RegistryKeyPaths = append(out.RegistryKeyPaths, key.Path())
				}
			}
		}

	case model.SourceRegistryValue:
		if r.regEngine == nil {
			return out, nil
		}
		for _, pair := range src.KeyValuePairs {
			for _, expandedKey := range r.expander.Expand(pair.Key) {
				keys, err := r.regEngine.GlobKeys(expandedKey, false)
				if err != nil {
					return out, err
				}
				for _, key := range keys {
					names, err := r.regEngine.GlobValues(key, pair.Value)
					if err != nil {
						return out, err
					}
					values, err := r.reg.EnumerateValues(key)
					if err != nil {
						return out, err
					}
					for _, name := range names {
						for _, v := range values {
							if v.Name == name {
								out.RegistryValues = append(out.RegistryValues, kb.RegistryValueData{
									Name:      v.Name,
									IsString:  v.IsString(),
									IsInteger: v.IsInteger(),
									Data:      v.Data,
								})
							}
						}
					}
				}
			}
		}

	case model.SourcePath, model.SourceDirectory:
		paths := r.globFiles(ctx, src)
		for _, p := range paths {
			out.Paths = append(out.Paths, p.RelativePath())
		}

	case model.SourceFile:
		paths := r.globFiles(ctx, src)
		for _, p := range paths {
			lines, err := r.readLines(ctx, p)
			if err != nil {
				r.warn("reading provider file %q: %v", p.RelativePath(), err)
				continue
			}
			out.FileLines = append(out.FileLines, lines)
		}
	}

	return out, nil
}

func (r *Resolver) readLines(ctx context.Context, p vfs.PathSpec) ([]string, error) {
	rc, err := r.fs.Open(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("resolver: opening %q: %w", p.RelativePath(), err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}
