package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ydl/internal/formatter"
	"github.com/desertthunder/ydl/internal/shared"
)

// CacheList prints the cached audio files matching cache_glob.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.settings(cmd)
	if err != nil {
		return err
	}

	files, err := shared.CachedFiles(s.CacheDir, s.CacheGlob)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return r.writePlain("%s\n", formatter.Styles.Help(fmt.Sprintf("Cache is empty (%s)", s.CacheDir)))
	}
	return r.writePlain("%s\n", formatter.CacheTable(s.CacheDir, files))
}

// CacheClean deletes cached audio files. It takes the cache lock so it never races a download.
func (r *Runner) CacheClean(ctx context.Context, cmd *cli.Command) error {
	s, err := r.settings(cmd)
	if err != nil {
		return err
	}

	lock, err := shared.LockCache(s.CacheDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release cache lock", "error", err)
		}
	}()

	removed, err := shared.CleanCache(s.CacheDir, s.CacheGlob)
	for _, f := range removed {
		r.logger.Debug("removed", "file", f)
	}
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", formatter.Styles.OK(fmt.Sprintf("✓ removed %d file(s) from %s", len(removed), s.CacheDir)))
}
