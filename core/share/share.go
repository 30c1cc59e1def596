// Package share produces a read-only, serializable summary of one snapshot:
// the container's declared packages plus the toolchain markers found in the
// snapshot directory. It has no write access to the store.
package share

import (
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/hashx"
	"github.com/davidahmann/sfc/core/store"
	"github.com/davidahmann/sfc/core/workspace"
)

// Summary is the exported description of one snapshot.
type Summary struct {
	ContainerName string                  `yaml:"container" json:"container"`
	Hash          string                  `yaml:"hash" json:"hash"`
	Description   string                  `yaml:"description" json:"description"`
	GeneratedAt   time.Time               `yaml:"generated_at" json:"generated_at"`
	Packages      []container.PackageSpec `yaml:"packages,omitempty" json:"packages,omitempty"`
	Toolchains    map[string]string       `yaml:"toolchains,omitempty" json:"toolchains,omitempty"`
}

// Generate builds the summary for the snapshot matching hashPrefix. An empty
// prefix summarizes the container's current stable snapshot.
func Generate(ws workspace.Workspace, snapshots store.Store, containerName, hashPrefix string) (Summary, error) {
	if hashPrefix == "" {
		infos, err := snapshots.ListContainerSnapshots(containerName)
		if err != nil {
			return Summary{}, err
		}
		for _, info := range infos {
			if info.IsActive {
				hashPrefix = info.Hash
				break
			}
		}
		if hashPrefix == "" {
			return Summary{}, sfcerrors.NotFound("stable snapshot", containerName)
		}
	}

	dir, err := snapshots.FindSnapshotByHash(hashPrefix)
	if err != nil {
		return Summary{}, err
	}
	fullHash, err := hashx.ComputeSnapshotHash(dir)
	if err != nil {
		return Summary{}, err
	}
	toolchains, err := store.SnapshotToolchains(dir)
	if err != nil {
		return Summary{}, err
	}
	config, err := container.Load(ws, containerName)
	if err != nil {
		return Summary{}, err
	}

	description := "snapshot"
	if infos, err := snapshots.ListContainerSnapshots(containerName); err == nil {
		for _, info := range infos {
			if info.IsActive && info.Hash == fullHash {
				description = "current stable"
				break
			}
		}
	}

	summary := Summary{
		ContainerName: containerName,
		Hash:          fullHash,
		Description:   description,
		GeneratedAt:   time.Now().UTC(),
		Packages:      config.Packages,
	}
	if len(toolchains) > 0 {
		summary.Toolchains = toolchains
	}
	return summary, nil
}

// RenderYAML serializes the summary for export.
func (summary Summary) RenderYAML() (string, error) {
	content, err := yaml.Marshal(summary)
	if err != nil {
		return "", sfcerrors.Internal(err, "encode share summary")
	}
	return strings.TrimRight(string(content), "\n") + "\n", nil
}
