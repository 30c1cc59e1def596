package fsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// WriteFileAtomic replaces path with content via a temp file and rename so a
// crash never leaves a half-written file behind.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := os.CreateTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("rename temp file: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return fmt.Errorf("rename temp file after remove: %w", renameErr)
		}
	}
	cleanup = false

	syncDirectory(parent)
	return nil
}

// CopyFile copies a regular file, preserving its permission bits.
func CopyFile(source, destination string) error {
	// #nosec G304 -- both paths are derived from workspace-relative walks.
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source %s: %w", source, err)
	}
	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source %s: %w", source, err)
	}

	// #nosec G304 -- destination is created inside a workspace store directory.
	out, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("open destination %s: %w", destination, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s to %s: %w", source, destination, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination %s: %w", destination, err)
	}
	return nil
}

// CopyDir recursively copies a directory tree. Symlinks inside the tree are
// recreated with their original targets rather than followed.
func CopyDir(source, destination string) error {
	if err := os.MkdirAll(destination, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", destination, err)
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", source, err)
	}
	for _, entry := range entries {
		sourcePath := filepath.Join(source, entry.Name())
		destinationPath := filepath.Join(destination, entry.Name())
		switch {
		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(sourcePath)
			if err != nil {
				return fmt.Errorf("read link %s: %w", sourcePath, err)
			}
			if err := os.Symlink(target, destinationPath); err != nil {
				return fmt.Errorf("recreate link %s: %w", destinationPath, err)
			}
		case entry.IsDir():
			if err := CopyDir(sourcePath, destinationPath); err != nil {
				return err
			}
		default:
			if err := CopyFile(sourcePath, destinationPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func syncDirectory(path string) {
	if path == "" || path == "." {
		return
	}
	// #nosec G304 -- path is the parent of an explicit caller-provided destination.
	if dirHandle, err := os.Open(path); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}
}
