package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const scratchPrefix = "_tmp_kb_"

// newScratch creates a uniquely named scratch directory under parent. The
// directory is created exclusively; a leftover of the same name is removed
// first.
func newScratch(parent string) (string, error) {
	dir := filepath.Join(parent, scratchPrefix+uuid.NewString())
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("%w: remove %s: %w", ErrScratch, dir, err)
	}
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrScratch, dir, err)
	}
	return dir, nil
}

func removeScratch(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrScratch, dir, err)
	}
	return nil
}
