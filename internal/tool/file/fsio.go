// Package file implements the read_file, write_file and edit_file tools.
package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// binarySampleSize is the number of bytes scanned for null bytes when
// detecting binary content. Matches git's heuristic.
const binarySampleSize = 8000

// isBinaryContent checks content for null bytes, skipping the check for
// UTF-16 and UTF-32 BOMs to avoid false positives.
func isBinaryContent(content []byte) bool {
	if len(content) >= 2 {
		if (content[0] == 0xFF && content[1] == 0xFE) ||
			(content[0] == 0xFE && content[1] == 0xFF) {
			return false
		}
	}
	if len(content) >= 4 {
		if (content[0] == 0xFF && content[1] == 0xFE && content[2] == 0x00 && content[3] == 0x00) ||
			(content[0] == 0x00 && content[1] == 0x00 && content[2] == 0xFE && content[3] == 0xFF) {
			return false
		}
	}

	sample := min(len(content), binarySampleSize)
	for i := range sample {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// writeFileAtomic writes content via temp file + rename so a crash
// mid-write never leaves a truncated target. The temp file lives in the
// target's directory to keep the rename atomic.
func writeFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		tmp = nil
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	cleanup = false

	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	return nil
}
