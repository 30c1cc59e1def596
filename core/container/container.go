// Package container holds the persisted per-container configuration and its
// metadata identity. The metadata hash is a separate scheme from snapshot
// hashing (core/hashx) and the two are never unified: snapshot hashes cover
// lock files on disk, metadata hashes cover the declared package set.
package container

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/fsx"
	"github.com/davidahmann/sfc/core/jcs"
	"github.com/davidahmann/sfc/core/workspace"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName rejects empty names and names outside [A-Za-z0-9_-]+.
func ValidateName(name string) error {
	if name == "" {
		return sfcerrors.Validation("container name", name, "name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return sfcerrors.Validation("container name", name, "must match [A-Za-z0-9_-]+")
	}
	return nil
}

// PackageSpec describes one declared package.
type PackageSpec struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version,omitempty" json:"version,omitempty"`
	Channel string `toml:"channel,omitempty" json:"channel,omitempty"`
	Source  string `toml:"source,omitempty" json:"source,omitempty"`
}

// Config is the persisted container configuration at
// .sfc/containers/<name>.toml.
type Config struct {
	Name        string            `toml:"name"`
	CreatedAt   time.Time         `toml:"created_at"`
	Packages    []PackageSpec     `toml:"packages,omitempty"`
	Environment map[string]string `toml:"environment,omitempty"`
	Toolchains  map[string]string `toml:"toolchains,omitempty"`
	Shell       string            `toml:"shell"`
}

// NewConfig returns a fresh config for name using the invoking user's shell.
func NewConfig(name string) Config {
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell == "" {
		shell = "/bin/bash"
	}
	return Config{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Shell:     shell,
	}
}

// Load reads a container's config; a missing file yields a fresh config so
// that package flows work against containers created before configs existed.
func Load(ws workspace.Workspace, name string) (Config, error) {
	path := ws.ContainerConfigPath(name)
	// #nosec G304 -- config path is derived from the local workspace root.
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(name), nil
		}
		return Config{}, sfcerrors.IO(err, "read container config "+path)
	}
	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		return Config{}, sfcerrors.Validation("container config", path, err.Error())
	}
	// The file name is authoritative over the embedded name.
	config.Name = name
	return config, nil
}

// Save writes the config atomically under .sfc/containers/.
func (config Config) Save(ws workspace.Workspace) error {
	path := ws.ContainerConfigPath(config.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return sfcerrors.IO(err, "create container config directory")
	}
	content, err := toml.Marshal(config)
	if err != nil {
		return sfcerrors.Internal(err, "encode container config")
	}
	return fsx.WriteFileAtomic(path, content, 0o600)
}

// Remove deletes the persisted config; removing an absent config is a no-op.
func Remove(ws workspace.Workspace, name string) error {
	if err := os.Remove(ws.ContainerConfigPath(name)); err != nil && !os.IsNotExist(err) {
		return sfcerrors.IO(err, "remove container config")
	}
	return nil
}

// AddPackage inserts spec, replacing any package of the same name, and keeps
// the package list sorted by name.
func (config *Config) AddPackage(spec PackageSpec) {
	config.RemovePackage(spec.Name)
	config.Packages = append(config.Packages, spec)
	sort.Slice(config.Packages, func(i, j int) bool {
		return config.Packages[i].Name < config.Packages[j].Name
	})
}

// RemovePackage drops the named package and reports whether it was present.
func (config *Config) RemovePackage(name string) bool {
	kept := config.Packages[:0]
	removed := false
	for _, spec := range config.Packages {
		if spec.Name == name {
			removed = true
			continue
		}
		kept = append(kept, spec)
	}
	config.Packages = kept
	return removed
}

// FindPackage returns the declared package of that name, if any.
func (config Config) FindPackage(name string) (PackageSpec, bool) {
	for _, spec := range config.Packages {
		if spec.Name == name {
			return spec, true
		}
	}
	return PackageSpec{}, false
}

type sortedPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// canonicalView is the metadata shape that feeds the identity digest. Maps
// are flattened to sorted pairs and the creation time is truncated to the
// minute so that sub-minute serialization jitter cannot fork identities.
type canonicalView struct {
	Name        string        `json:"name"`
	CreatedAt   string        `json:"created_at"`
	Packages    []PackageSpec `json:"packages"`
	Environment []sortedPair  `json:"environment"`
	Toolchains  []sortedPair  `json:"toolchains"`
	Shell       string        `json:"shell"`
}

func sortPairs(values map[string]string) []sortedPair {
	pairs := make([]sortedPair, 0, len(values))
	for key, value := range values {
		pairs = append(pairs, sortedPair{Key: key, Value: value})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

// MetadataHash returns the 64-char hex identity of the container's metadata.
func (config Config) MetadataHash() (string, error) {
	packages := make([]PackageSpec, len(config.Packages))
	copy(packages, config.Packages)
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })

	view := canonicalView{
		Name:        config.Name,
		CreatedAt:   config.CreatedAt.UTC().Truncate(time.Minute).Format(time.RFC3339),
		Packages:    packages,
		Environment: sortPairs(config.Environment),
		Toolchains:  sortPairs(config.Toolchains),
		Shell:       config.Shell,
	}
	serialized, err := json.Marshal(view)
	if err != nil {
		return "", sfcerrors.Internal(err, "serialize container metadata")
	}
	digest, err := jcs.Digest(serialized)
	if err != nil {
		return "", sfcerrors.Internal(err, "canonicalize container metadata")
	}
	return digest, nil
}
