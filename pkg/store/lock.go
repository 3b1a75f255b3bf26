package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kvlog/pkg/kverrors"
)

const lockFileName = "kvlog.lock"

// dirLock is an exclusive claim on a storage directory. It rejects a
// second store instance opening the same directory.
type dirLock struct {
	path string
	id   string
}

// acquireLock creates the lock file, failing with ErrLocked if
// another instance already holds it. A lock left behind by a crashed
// process must be removed by the operator.
func acquireLock(dir string) (*dirLock, error) {
	path := filepath.Join(dir, lockFileName)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			holder, _ := os.ReadFile(path)
			return nil, fmt.Errorf("%w: held by %s", kverrors.ErrLocked,
				strings.TrimSpace(string(holder)))
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	id := uuid.NewString()
	if _, err := fmt.Fprintf(file, "%s pid=%d\n", id, os.Getpid()); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close lock file: %w", err)
	}

	return &dirLock{path: path, id: id}, nil
}

func (l *dirLock) release() error {
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to release lock file: %w", err)
	}
	return nil
}
