package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ydl/internal/beets"
	"github.com/desertthunder/ydl/internal/models"
	"github.com/desertthunder/ydl/internal/shared"
	"github.com/desertthunder/ydl/internal/tagger"
	"github.com/desertthunder/ydl/internal/titles"
	"github.com/desertthunder/ydl/internal/ytdlp"
)

// Downloader fetches audio and metadata. Implemented by [ytdlp.Client].
type Downloader interface {
	Download(ctx context.Context, target string, s shared.DownloaderSettings) (*ytdlp.Info, error)
	Extract(ctx context.Context, target string, s shared.InfoSettings) ([]ytdlp.Info, error)
}

// Tagger writes tags into a downloaded file. Implemented by [tagger.Tagger].
type Tagger interface {
	Write(path string, tags tagger.Tags) error
}

// Importer hands files to the music library. Implemented by [beets.Importer].
type Importer interface {
	Import(ctx context.Context, paths []string, o beets.Options) error
}

// Recorder stores completed downloads. Implemented by repositories.HistoryRecorder.
type Recorder interface {
	Record(target, videoID, path string, track models.Track) error
}

// DownloadResult describes one processed argument.
type DownloadResult struct {
	Target string
	Info   ytdlp.Info
	Path   string
	Track  models.Track
}

// RunResult contains everything a run did.
type RunResult struct {
	Downloads []DownloadResult
	// Imported holds the paths passed to the importer, empty when no import ran.
	Imported []string
}

// Engine runs downloads, tagging and import for one invocation.
type Engine struct {
	downloader Downloader
	tagger     Tagger
	importer   Importer
	recorder   Recorder
	logger     *log.Logger
	out        io.Writer
}

// NewEngine creates an Engine. Status lines are written to out.
func NewEngine(d Downloader, t Tagger, i Importer, logger *log.Logger, out io.Writer) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if out == nil {
		out = io.Discard
	}
	return &Engine{downloader: d, tagger: t, importer: i, logger: logger, out: out}
}

// WithRecorder sets the history recorder. A nil recorder disables history.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Download processes each argument in order and then imports once. The cache directory is
// locked for the whole run. The first failing argument aborts the run and skips the import.
func (e *Engine) Download(ctx context.Context, progress chan<- ProgressUpdate, s shared.Settings, args []string) (*RunResult, error) {
	if !s.Download && !s.Import {
		e.logger.Info("nothing to do: download and import are both disabled")
		return &RunResult{}, nil
	}

	lock, err := shared.LockCache(s.CacheDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("failed to release cache lock", "error", err)
		}
	}()

	result := &RunResult{}
	if s.Download {
		limiter := newLimiter(s.RateLimit)
		total := len(args)
		for i, target := range args {
			if err := limiter.Wait(ctx); err != nil {
				return result, err
			}

			res, err := e.downloadOne(ctx, progress, s, target, i+1, total)
			if err != nil {
				return result, fmt.Errorf("%s: %w", target, err)
			}
			result.Downloads = append(result.Downloads, *res)
		}
	} else {
		e.logger.Debug("download disabled, skipping fetch", "args", len(args))
	}

	if !s.Import {
		e.logger.Debug("import disabled")
		return result, nil
	}

	paths, err := e.importPaths(s, result)
	if err != nil {
		return result, err
	}
	if len(paths) == 0 {
		e.logger.Info("nothing to import", "cachedir", s.CacheDir)
		return result, nil
	}

	e.sendProgress(progress, importUpdate(paths, s.ImportMode))
	e.logger.Debug("importing", "mode", s.ImportMode, "paths", len(paths), "keep", s.KeepFiles)

	opts := beets.Options{Verbose: s.Verbose, Keep: s.KeepFiles, Mode: s.ImportMode}
	if err := e.importer.Import(ctx, paths, opts); err != nil {
		return result, err
	}
	result.Imported = paths
	return result, nil
}

func (e *Engine) downloadOne(ctx context.Context, progress chan<- ProgressUpdate, s shared.Settings, target string, step, total int) (*DownloadResult, error) {
	e.sendProgress(progress, fetchUpdate(step, total, target))
	e.logger.Debug("downloading", "target", target)

	info, err := e.downloader.Download(ctx, target, s.Downloader)
	if err != nil {
		return nil, err
	}

	ext := s.Downloader.PreferredCodec
	if ext == "" || ext == "best" {
		ext = info.Ext
	}
	path := ytdlp.Filename(s.Downloader.OutputTemplate, info.ID, ext)

	track := PickTrack(*info)
	if track.Source == models.SourceDescription {
		e.logger.Warn("no title or metadata, guessing tags from the description", "id", info.ID)
	}

	e.sendProgress(progress, tagUpdate(step, total, track))
	if err := e.tagger.Write(path, tagger.Tags{Artist: track.Artist, Title: track.Song, Album: track.Album}); err != nil {
		return nil, err
	}

	if e.recorder != nil && s.History {
		e.sendProgress(progress, recordUpdate(step, total, info.ID))
		if err := e.recorder.Record(target, info.ID, path, track); err != nil {
			e.logger.Warn("failed to record download", "id", info.ID, "error", err)
		}
	}

	fmt.Fprintf(e.out, "Downloaded: %s\n", track)
	return &DownloadResult{Target: target, Info: *info, Path: path, Track: track}, nil
}

// importPaths picks what the importer receives. Group mode always imports the cache directory.
// Singleton mode imports the files downloaded in this run, or the cached files when the run
// did not download.
func (e *Engine) importPaths(s shared.Settings, result *RunResult) ([]string, error) {
	if s.ImportMode != shared.ImportModeSingleton {
		return []string{s.CacheDir}, nil
	}

	if s.Download {
		paths := make([]string, 0, len(result.Downloads))
		for _, d := range result.Downloads {
			paths = append(paths, d.Path)
		}
		return paths, nil
	}

	return shared.CachedFiles(s.CacheDir, s.CacheGlob)
}

// SearchURLs looks up each argument and returns one YouTube Music search URL per video.
func (e *Engine) SearchURLs(ctx context.Context, progress chan<- ProgressUpdate, s shared.Settings, args []string) ([]string, error) {
	var urls []string
	for i, target := range args {
		e.sendProgress(progress, lookupUpdate(i+1, len(args), target))

		infos, err := e.downloader.Extract(ctx, target, s.Info)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", target, err)
		}

		for _, info := range infos {
			artist, song := searchTerms(info)
			urls = append(urls, titles.SearchURL(s.YMSearchFormat, artist, song))
		}
	}
	return urls, nil
}

// YouTubeMusic resolves each argument to YouTube Music searches and downloads the results.
func (e *Engine) YouTubeMusic(ctx context.Context, progress chan<- ProgressUpdate, s shared.Settings, args []string) (*RunResult, error) {
	urls, err := e.SearchURLs(ctx, progress, s, args)
	if err != nil {
		return nil, err
	}
	for _, u := range urls {
		e.logger.Debug("resolved", "url", u)
	}
	return e.Download(ctx, progress, s, urls)
}

// PickTrack chooses the tags for a downloaded video. Structured metadata wins, then the
// title, then the first line of the description.
func PickTrack(info ytdlp.Info) models.Track {
	switch {
	case info.Album != "" && len(info.Artists) > 0 && info.Track != "":
		return models.Track{Artist: info.Artists[0], Song: info.Track, Album: info.Album, Source: models.SourceMetadata}
	case info.Artist != "" && info.Track != "":
		return models.Track{Artist: info.Artist, Song: info.Track, Album: info.Album, Source: models.SourceMetadata}
	case info.Title == "" && strings.TrimSpace(info.Description) != "":
		album, artist, song := titles.ParseDescription(info.Description)
		return models.Track{Artist: artist, Song: song, Album: album, Source: models.SourceDescription}
	default:
		artist, song := titles.Parse(info.Title)
		return models.Track{Artist: artist, Song: song, Source: models.SourceTitle}
	}
}

func searchTerms(info ytdlp.Info) (artist, song string) {
	if len(info.Artists) > 0 && info.Track != "" {
		return strings.Join(info.Artists, ", "), info.Track
	}
	return titles.Parse(info.Title)
}

// newLimiter allows perMinute waits per minute. Zero or less means unlimited.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
