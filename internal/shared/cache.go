package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"
)

// LockFileName is created inside the cache directory while a run holds it.
const LockFileName = ".ydl.lock"

// CachedFiles returns the files under cachedir matching glob, sorted. A missing cache
// directory yields no files.
func CachedFiles(cachedir, glob string) ([]string, error) {
	cachedir = ExpandHome(cachedir)
	if _, err := os.Stat(cachedir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("%w: invalid cache_glob %q", ErrInvalidConfig, glob)
	}

	matches, err := doublestar.Glob(os.DirFS(cachedir), glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(cachedir, filepath.FromSlash(m)))
	}
	slices.Sort(files)
	return files, nil
}

// CleanCache deletes the files CachedFiles would list and returns their paths.
func CleanCache(cachedir, glob string) ([]string, error) {
	files, err := CachedFiles(cachedir, glob)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", f, err)
		}
		removed = append(removed, f)
	}
	return removed, nil
}

// LockCache takes an exclusive lock on cachedir, creating the directory if needed. It fails
// immediately with [ErrCacheLocked] when another process holds the lock. Callers release the
// lock with Unlock.
func LockCache(cachedir string) (*flock.Flock, error) {
	cachedir = ExpandHome(cachedir)
	if err := os.MkdirAll(cachedir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(cachedir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheLocked, cachedir)
	}
	return lock, nil
}
