package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Lock acquisition gives up after lockWaitLimit; a lock file older than
// lockStaleAfter is treated as left behind by a crashed process and broken.
const (
	lockWaitLimit  = 30 * time.Second
	lockPollEvery  = 10 * time.Millisecond
	lockStaleAfter = 2 * time.Minute
)

// AppendLineLocked appends one record plus a trailing newline to path,
// serialized against other processes through a sidecar lock file. The record
// is fsynced before the lock is released, so concurrent writers produce
// interleaved whole lines, never torn ones. Telemetry streams append through
// here.
func AppendLineLocked(path string, record []byte, mode os.FileMode) error {
	target, err := checkAppendPath(path)
	if err != nil {
		return err
	}
	parent := filepath.Dir(target)
	if parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return fmt.Errorf("create append directory: %w", err)
		}
	}

	release, err := acquireSidecarLock(target)
	if err != nil {
		return err
	}
	defer release()

	// #nosec G304 -- target passed checkAppendPath above.
	file, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("open append file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	line := append(append(make([]byte, 0, len(record)+1), record...), '\n')
	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync append file: %w", err)
	}
	if parent != "." && parent != "" {
		syncDirectory(parent)
	}
	return nil
}

// acquireSidecarLock takes <path>.lock via O_EXCL creation and returns the
// release function. Stale locks are broken, not waited out.
func acquireSidecarLock(path string) (func(), error) {
	lockPath := path + ".lock"
	deadline := time.Now().Add(lockWaitLimit)
	for {
		// #nosec G304 -- lock path derives from a checked append path.
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = lockFile.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire append lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("append lock timeout on %s", lockPath)
		}
		time.Sleep(lockPollEvery)
	}
}

// checkAppendPath accepts clean relative paths inside the working directory
// and absolute paths, rejecting anything that escapes upward.
func checkAppendPath(path string) (string, error) {
	clean := filepath.Clean(path)
	if filepath.IsLocal(clean) || filepath.IsAbs(clean) {
		return clean, nil
	}
	return "", fmt.Errorf("append path must be local relative or absolute")
}
