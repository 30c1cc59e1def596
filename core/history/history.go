// Package history is the append-only operation ledger at .sfc/history.json.
// Every mutating container operation appends one hash-identified entry whose
// parent is the previous entry for the same container, forming a per-container
// chain inside one shared file.
//
// The file is loaded whole, mutated in memory, and rewritten whole on each
// append. The rewrite itself is atomic (temp plus rename) but there is no
// cross-process lock and no incremental fsync'd append, so the ledger is not
// a crash-recovery log; mutating operations stay idempotent instead of
// leaning on it.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/fsx"
	"github.com/davidahmann/sfc/core/hashx"
)

// Operation tags for ledger entries.
const (
	OpCreate        = "create"
	OpAddPackage    = "add_package"
	OpRemovePackage = "remove_package"
	OpModifyPackage = "modify_package"
	OpPromote       = "promote"
	OpRollback      = "rollback"
)

// Entry is one immutable ledger record. Entries are never edited or removed.
type Entry struct {
	Hash          string    `json:"hash"`
	ContainerName string    `json:"container_name"`
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
	Operation     string    `json:"operation"`
	ParentHash    string    `json:"parent_hash,omitempty"`
}

// Ledger holds the loaded entries of one workspace.
type Ledger struct {
	path    string
	entries []Entry
}

// Load reads and validates the ledger; a missing file yields an empty one.
func Load(path string) (*Ledger, error) {
	ledger := &Ledger{path: path}
	content, err := os.ReadFile(path) // #nosec G304 -- ledger path is derived from the workspace root.
	if err != nil {
		if os.IsNotExist(err) {
			return ledger, nil
		}
		return nil, sfcerrors.IO(err, "read history ledger")
	}
	if err := validateEntries(content); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &ledger.entries); err != nil {
		return nil, sfcerrors.Validation("history ledger", path, err.Error())
	}
	return ledger, nil
}

func (ledger *Ledger) save() error {
	content, err := json.MarshalIndent(ledger.entries, "", "  ")
	if err != nil {
		return sfcerrors.Internal(err, "encode history ledger")
	}
	if err := os.MkdirAll(filepath.Dir(ledger.path), 0o750); err != nil {
		return sfcerrors.IO(err, "create history directory")
	}
	return fsx.WriteFileAtomic(ledger.path, content, 0o600)
}

// AddEntry appends a record for one mutating operation on config. The entry
// hash is the container's metadata hash; the parent is the most recent entry
// for the same container, absent for the container's first entry. Returns
// the new hash.
func (ledger *Ledger) AddEntry(config container.Config, operation, message string) (string, error) {
	hash, err := config.MetadataHash()
	if err != nil {
		return "", err
	}
	parent := ""
	for i := len(ledger.entries) - 1; i >= 0; i-- {
		if ledger.entries[i].ContainerName == config.Name {
			parent = ledger.entries[i].Hash
			break
		}
	}
	ledger.entries = append(ledger.entries, Entry{
		Hash:          hash,
		ContainerName: config.Name,
		Timestamp:     time.Now().UTC(),
		Message:       message,
		Operation:     operation,
		ParentHash:    parent,
	})
	if err := ledger.save(); err != nil {
		return "", err
	}
	return hash, nil
}

// Entries returns all records in stored (append) order.
func (ledger *Ledger) Entries() []Entry {
	return ledger.entries
}

// ContainerEntries returns the records for one container in stored order.
func (ledger *Ledger) ContainerEntries(containerName string) []Entry {
	var filtered []Entry
	for _, entry := range ledger.entries {
		if entry.ContainerName == containerName {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// FindByHash returns the first entry in stored order whose hash starts with
// prefix. Multiple matches are not disambiguated; this is looser than
// hashx.FindHashByPrefix on purpose.
func (ledger *Ledger) FindByHash(prefix string) (Entry, bool) {
	for _, entry := range ledger.entries {
		if strings.HasPrefix(entry.Hash, prefix) {
			return entry, true
		}
	}
	return Entry{}, false
}

const logCap = 20

// Log renders the newest-first log view, optionally filtered by container
// and capped to the most recent entries.
func (ledger *Ledger) Log(containerName string) []string {
	entries := ledger.entries
	if containerName != "" {
		entries = ledger.ContainerEntries(containerName)
	}
	if len(entries) == 0 {
		return []string{"No history entries found"}
	}
	lines := make([]string, 0, logCap)
	for i := len(entries) - 1; i >= 0 && len(lines) < logCap; i-- {
		entry := entries[i]
		lines = append(lines, hashx.LogHash(entry.Hash)+" "+
			entry.Timestamp.Format("2006-01-02 15:04:05")+" ["+
			entry.ContainerName+"] "+operationTag(entry)+" - "+entry.Message)
	}
	return lines
}

func operationTag(entry Entry) string {
	switch entry.Operation {
	case OpCreate:
		return "CREATE"
	case OpAddPackage:
		return "ADD"
	case OpRemovePackage:
		return "REMOVE"
	case OpModifyPackage:
		return "MODIFY"
	case OpPromote:
		return "PROMOTE"
	case OpRollback:
		return "ROLLBACK"
	}
	return strings.ToUpper(entry.Operation)
}

// Graph renders the parent/child tree of the (optionally filtered) entries.
// Entries with no parent inside the filtered set are roots.
func (ledger *Ledger) Graph(containerName string) []string {
	entries := ledger.entries
	if containerName != "" {
		entries = ledger.ContainerEntries(containerName)
	}
	if len(entries) == 0 {
		return []string{"No history to visualize"}
	}

	children := make(map[string][]Entry)
	known := make(map[string]bool, len(entries))
	for _, entry := range entries {
		known[entry.Hash] = true
	}
	var roots []Entry
	for _, entry := range entries {
		if entry.ParentHash != "" && known[entry.ParentHash] {
			children[entry.ParentHash] = append(children[entry.ParentHash], entry)
			continue
		}
		roots = append(roots, entry)
	}

	var lines []string
	expanded := make(map[string]bool, len(entries))
	for _, root := range roots {
		lines = renderNode(lines, root, children, expanded, "", true)
	}
	return lines
}

// renderNode expands each hash's children at most once: repeated container
// states share a metadata hash, so an entry can carry its own hash as its
// parent, and an unguarded walk would never terminate.
func renderNode(lines []string, entry Entry, children map[string][]Entry, expanded map[string]bool, prefix string, isLast bool) []string {
	corner := "├── "
	childPrefix := prefix + "│   "
	if isLast {
		corner = "└── "
		childPrefix = prefix + "    "
	}
	lines = append(lines, prefix+corner+hashx.LogHash(entry.Hash)+" "+
		entry.Timestamp.Format("01-02 15:04")+" "+entry.Message)
	if expanded[entry.Hash] {
		return lines
	}
	expanded[entry.Hash] = true
	siblings := children[entry.Hash]
	for i, child := range siblings {
		lines = renderNode(lines, child, children, expanded, childPrefix, i == len(siblings)-1)
	}
	return lines
}
