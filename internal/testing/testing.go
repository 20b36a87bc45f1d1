// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/desertthunder/ydl/internal/beets"
	"github.com/desertthunder/ydl/internal/models"
	"github.com/desertthunder/ydl/internal/shared"
	"github.com/desertthunder/ydl/internal/tagger"
	"github.com/desertthunder/ydl/internal/ytdlp"
)

// FakeDownloader is a test double for the yt-dlp client. Infos and Extracted are keyed by target.
type FakeDownloader struct {
	Infos      map[string]*ytdlp.Info
	Extracted  map[string][]ytdlp.Info
	Errs       map[string]error
	Downloaded []string
	Settings   []shared.DownloaderSettings
}

func (f *FakeDownloader) Download(ctx context.Context, target string, s shared.DownloaderSettings) (*ytdlp.Info, error) {
	f.Downloaded = append(f.Downloaded, target)
	f.Settings = append(f.Settings, s)
	if err := f.Errs[target]; err != nil {
		return nil, err
	}
	if info, ok := f.Infos[target]; ok {
		return info, nil
	}
	return nil, shared.ErrDownloadNotFound
}

func (f *FakeDownloader) Extract(ctx context.Context, target string, s shared.InfoSettings) ([]ytdlp.Info, error) {
	if err := f.Errs[target]; err != nil {
		return nil, err
	}
	return f.Extracted[target], nil
}

// FakeTagger records every write.
type FakeTagger struct {
	Paths []string
	Tags  []tagger.Tags
	Err   error
}

func (f *FakeTagger) Write(path string, tags tagger.Tags) error {
	if f.Err != nil {
		return f.Err
	}
	f.Paths = append(f.Paths, path)
	f.Tags = append(f.Tags, tags)
	return nil
}

// FakeImporter records each import call.
type FakeImporter struct {
	Calls   [][]string
	Options []beets.Options
	Err     error
}

func (f *FakeImporter) Import(ctx context.Context, paths []string, o beets.Options) error {
	f.Calls = append(f.Calls, paths)
	f.Options = append(f.Options, o)
	return f.Err
}

// FakeRecorder stores tracks in memory.
type FakeRecorder struct {
	Tracks []models.Track
	Err    error
}

func (f *FakeRecorder) Record(target, videoID, path string, track models.Track) error {
	if f.Err != nil {
		return f.Err
	}
	f.Tracks = append(f.Tracks, track)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// TestSettings returns default settings rooted in a temp cache directory.
func TestSettings(t *testing.T) shared.Settings {
	t.Helper()
	o := shared.Resolve(shared.Defaults(), shared.Options{
		shared.KeyCacheDir: t.TempDir(),
	}, nil)
	return shared.NewSettings(o)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
