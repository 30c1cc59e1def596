// Package gc reclaims store entries and aliases no longer reachable from any
// named pointer. It is the store's sole reclamation mechanism: a mark and
// sweep with the aliases under links/ as roots.
package gc

import (
	"os"
	"path/filepath"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/workspace"
)

// Collector sweeps one workspace.
type Collector struct {
	ws workspace.Workspace
}

// New returns a Collector over ws.
func New(ws workspace.Workspace) Collector {
	return Collector{ws: ws}
}

// Report summarizes one Clean pass.
type Report struct {
	RemovedLinks     []string `json:"removed_links"`
	RemovedSnapshots []string `json:"removed_snapshots"`
}

// Clean runs the two sweeps in order: first every dangling or unreadable
// symlink under links/ is removed, then every store directory not targeted by
// a surviving link. Running Clean twice in a row is a no-op the second time.
func (collector Collector) Clean() (Report, error) {
	var report Report

	removedLinks, err := collector.sweepDanglingLinks()
	if err != nil {
		return report, err
	}
	report.RemovedLinks = removedLinks

	removedSnapshots, err := collector.sweepOrphanSnapshots()
	if err != nil {
		return report, err
	}
	report.RemovedSnapshots = removedSnapshots
	return report, nil
}

func (collector Collector) sweepDanglingLinks() ([]string, error) {
	linksDir := collector.ws.LinksDir()
	entries, err := os.ReadDir(linksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sfcerrors.IO(err, "read links directory")
	}

	var removed []string
	for _, entry := range entries {
		link := filepath.Join(linksDir, entry.Name())
		info, err := os.Lstat(link)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		target, err := os.Readlink(link)
		dangling := err != nil
		if !dangling {
			resolved := target
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(linksDir, resolved)
			}
			if _, err := os.Stat(resolved); err != nil {
				dangling = true
			}
		}
		if !dangling {
			continue
		}
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return removed, sfcerrors.IO(err, "remove dangling link "+entry.Name())
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

func (collector Collector) sweepOrphanSnapshots() ([]string, error) {
	storeDir := collector.ws.StoreDir()
	entries, err := os.ReadDir(storeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sfcerrors.IO(err, "read store directory")
	}

	referenced, err := collector.referencedBasenames()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if referenced[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(storeDir, entry.Name())); err != nil {
			return removed, sfcerrors.IO(err, "remove orphan snapshot "+entry.Name())
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

func (collector Collector) referencedBasenames() (map[string]bool, error) {
	referenced := make(map[string]bool)
	linksDir := collector.ws.LinksDir()
	entries, err := os.ReadDir(linksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return referenced, nil
		}
		return nil, sfcerrors.IO(err, "read links directory")
	}
	for _, entry := range entries {
		link := filepath.Join(linksDir, entry.Name())
		info, err := os.Lstat(link)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if target, err := os.Readlink(link); err == nil {
			referenced[filepath.Base(target)] = true
		}
	}
	return referenced, nil
}

// RemoveStoreIfOrphan deletes the store directory a removed alias targeted,
// unless another alias still references the same basename. Reference
// counting is a scan over the surviving aliases, not a stored counter.
func (collector Collector) RemoveStoreIfOrphan(relTarget string) error {
	basename := filepath.Base(relTarget)
	candidate := filepath.Join(collector.ws.StoreDir(), basename)
	if _, err := os.Stat(candidate); err != nil {
		return nil
	}

	referenced, err := collector.referencedBasenames()
	if err != nil {
		return err
	}
	if referenced[basename] {
		return nil
	}
	if err := os.RemoveAll(candidate); err != nil {
		return sfcerrors.IO(err, "remove orphan snapshot "+basename)
	}
	return nil
}
