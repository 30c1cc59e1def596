// Package hashx implements snapshot identity hashing and hash-prefix
// matching for the store.
//
// A snapshot's identity is deliberately not a pure content hash: the digest
// covers the directory basename and the directory's modification time
// (truncated to seconds) in addition to the whitelisted lock and metadata
// files. Copying or touching a snapshot therefore changes its hash. This
// matches the on-disk format of existing workspaces and must not be changed
// to content-only hashing.
package hashx

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LockfileWhitelist is the ordered set of lock files covered by snapshot
// hashing. It is wider than the three-file set used for branching and
// diffing; the two sets are distinct on purpose.
var LockfileWhitelist = []string{
	"requirements.txt",
	"package-lock.json",
	"Cargo.lock",
	"rockspec.lock",
	"Gemfile.lock",
	"composer.lock",
	"pubspec.lock",
	"mix.lock",
}

// MetadataWhitelist is the ordered set of metadata files covered by snapshot
// hashing.
var MetadataWhitelist = []string{
	"sfc-metadata.toml",
	"container.toml",
	"toolchain.toml",
}

// ComputeSnapshotHash returns the 64-char lowercase hex identity of a
// snapshot directory.
func ComputeSnapshotHash(snapshotDir string) (string, error) {
	hasher := sha256.New()

	hasher.Write([]byte(filepath.Base(snapshotDir)))

	for _, name := range LockfileWhitelist {
		if err := hashFileIfPresent(hasher, snapshotDir, name); err != nil {
			return "", err
		}
	}
	for _, name := range MetadataWhitelist {
		if err := hashFileIfPresent(hasher, snapshotDir, name); err != nil {
			return "", err
		}
	}

	if info, err := os.Stat(snapshotDir); err == nil {
		var seconds [8]byte
		binary.LittleEndian.PutUint64(seconds[:], uint64(info.ModTime().Unix()))
		hasher.Write(seconds[:])
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func hashFileIfPresent(hasher io.Writer, dir, name string) error {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if _, err := hasher.Write([]byte(name)); err != nil {
		return err
	}
	// #nosec G304 -- path is a whitelisted filename inside a store directory.
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	_, err = hasher.Write(content)
	return err
}

// ComputeContentHash hashes arbitrary bytes to 64 lowercase hex chars.
func ComputeContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the 12-char display form of a hash.
func ShortHash(fullHash string) string {
	if len(fullHash) <= 12 {
		return fullHash
	}
	return fullHash[:12]
}

// LogHash returns the 8-char form used in history log rows.
func LogHash(fullHash string) string {
	if len(fullHash) <= 8 {
		return fullHash
	}
	return fullHash[:8]
}

// ValidateHashFormat reports whether hash is a 64-char hex string.
func ValidateHashFormat(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

// FindHashByPrefix resolves prefix against candidates. The prefix must be at
// least 6 chars, and the match must be unique; ambiguous or absent prefixes
// resolve to nothing.
func FindHashByPrefix(candidates []string, prefix string) (string, bool) {
	if len(prefix) < 6 {
		return "", false
	}
	match := ""
	count := 0
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, prefix) {
			match = candidate
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	return match, true
}

// HashesMatch compares two hashes, treating the shorter one (at least 6
// chars) as a prefix of the longer.
func HashesMatch(first, second string) bool {
	if len(first) == len(second) {
		return first == second
	}
	shorter, longer := first, second
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < 6 {
		return false
	}
	return strings.HasPrefix(longer, shorter)
}

func isHexDigit(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
