package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// ScratchPath returns a unique path inside dir for a file derived from name.
// Only the base of name is kept, so client-supplied names cannot escape dir.
func ScratchPath(dir, prefix, name string) string {
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		base = "file"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s", prefix, uuid.NewString()[:8], base))
}
