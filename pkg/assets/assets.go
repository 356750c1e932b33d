// Package assets resolves fingerprinted asset names.
//
// A build step writes a JSON manifest mapping source names to
// fingerprinted files:
//
//	{
//	  "client.js": "client.a1b2c3d4.js",
//	  "error.css": "error.e5f6g7h8.css"
//	}
//
// The renderer resolves its client script and stylesheets through a
// Resolver so error pages link the current build:
//
//	manifest, err := assets.LoadManifest("dist/manifest.json")
//	resolver := assets.NewResolver(manifest, "/public/")
//	resolver.Asset("client.js") // "/public/client.a1b2c3d4.js"
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Resolver maps a source asset name to the URL path to link.
type Resolver interface {
	Asset(source string) string
}

// Manifest maps source asset names to fingerprinted names. It is read-only
// once loaded.
type Manifest struct {
	entries map[string]string
}

// NewManifest creates a manifest from entries. The map is copied.
func NewManifest(entries map[string]string) *Manifest {
	m := &Manifest{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// LoadManifest reads a JSON manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assets: read manifest: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("assets: parse manifest %s: %w", path, err)
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted name for source, or source itself.
func (m *Manifest) Resolve(source string) (string, bool) {
	if m == nil {
		return source, false
	}
	resolved, ok := m.entries[source]
	if !ok {
		return source, false
	}
	return resolved, true
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

type resolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver that looks names up in m and prepends
// prefix. A nil manifest passes names through with the prefix applied.
func NewResolver(m *Manifest, prefix string) Resolver {
	return &resolver{manifest: m, prefix: prefix}
}

// Asset implements Resolver. Absolute paths and URLs are left alone.
func (r *resolver) Asset(source string) string {
	resolved, _ := r.manifest.Resolve(source)
	if isAbsolute(resolved) {
		return resolved
	}
	return r.prefix + strings.TrimPrefix(resolved, "./")
}

func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "/") || strings.Contains(p, "://")
}
