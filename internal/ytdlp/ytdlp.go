// package ytdlp wraps the yt-dlp executable, which fetches and transcodes audio.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/desertthunder/ydl/internal/shared"
)

const installHint = `install it:
  macOS:   brew install yt-dlp
  Linux:   pip install yt-dlp  (or your package manager)
  Windows: winget install yt-dlp`

// RunFunc executes name with args and returns what it wrote to stdout.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Info is the subset of yt-dlp's info JSON that tagging needs.
type Info struct {
	ID          string   `json:"id"`
	Type        string   `json:"_type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ext         string   `json:"ext"`
	WebpageURL  string   `json:"webpage_url"`
	Artist      string   `json:"artist"`
	Artists     []string `json:"artists"`
	Track       string   `json:"track"`
	Album       string   `json:"album"`
	Entries     []Info   `json:"entries"`
}

// IsPlaylist reports whether the info describes a playlist or search result list.
func (i Info) IsPlaylist() bool {
	return i.Type == "playlist" || len(i.Entries) > 0
}

// Client runs yt-dlp as a subprocess.
type Client struct {
	binary string
	run    RunFunc
}

// New creates a Client for the given executable. When stderr is non-nil, yt-dlp's own
// diagnostics are streamed to it as well as captured for error messages.
func New(binary string, stderr io.Writer) *Client {
	return NewWithRunner(binary, execRunner(stderr))
}

// NewWithRunner creates a Client that executes commands through run.
func NewWithRunner(binary string, run RunFunc) *Client {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Client{binary: binary, run: run}
}

// Download fetches and transcodes target, which may be a URL or a search query.
// When target resolves to a playlist, the first entry is returned.
func (c *Client) Download(ctx context.Context, target string, s shared.DownloaderSettings) (*Info, error) {
	info, err := c.dump(ctx, DownloadArgs(target, s))
	if err != nil {
		return nil, err
	}

	if info.IsPlaylist() {
		entries := nonEmpty(info.Entries)
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: no entries for %q", shared.ErrInvalidInfo, target)
		}
		first := entries[0]
		info = &first
	}

	if info.ID == "" {
		return nil, fmt.Errorf("%w: missing id for %q", shared.ErrInvalidInfo, target)
	}
	return info, nil
}

// Extract looks up metadata for target without downloading. Playlists are flattened
// into their entries.
func (c *Client) Extract(ctx context.Context, target string, s shared.InfoSettings) ([]Info, error) {
	info, err := c.dump(ctx, InfoArgs(target, s))
	if err != nil {
		return nil, err
	}

	if info.IsPlaylist() {
		return nonEmpty(info.Entries), nil
	}
	return []Info{*info}, nil
}

func (c *Client) dump(ctx context.Context, args []string) (*Info, error) {
	out, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(bytes.TrimSpace(out), &info); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInfo, err)
	}
	return &info, nil
}

// DownloadArgs builds the yt-dlp command line for a fetch-and-transcode run.
func DownloadArgs(target string, s shared.DownloaderSettings) []string {
	args := []string{"--dump-single-json", "--no-simulate", "--no-progress", "-x"}
	if s.Format != "" {
		args = append(args, "-f", s.Format)
	}
	if s.PreferredCodec != "" {
		args = append(args, "--audio-format", s.PreferredCodec)
	}
	if s.PreferredQuality != "" {
		args = append(args, "--audio-quality", s.PreferredQuality)
	}
	if s.OutputTemplate != "" {
		args = append(args, "-o", s.OutputTemplate)
	}
	if s.NoOverwrites {
		args = append(args, "--no-overwrites")
	} else {
		args = append(args, "--force-overwrites")
	}
	if s.NoPostOverwrites {
		args = append(args, "--no-post-overwrites")
	}
	if s.RestrictFilenames {
		args = append(args, "--restrict-filenames")
	}
	if s.KeepVideo {
		args = append(args, "--keep-video")
	}
	if s.PlaylistItems != "" {
		args = append(args, "--playlist-items", s.PlaylistItems)
	}
	args = appendCommon(args, s.Quiet, s.Verbose, s.DefaultSearch)
	return append(args, "--", target)
}

// InfoArgs builds the yt-dlp command line for a metadata-only lookup.
func InfoArgs(target string, s shared.InfoSettings) []string {
	args := []string{"--dump-single-json"}
	if s.Simulate {
		args = append(args, "--simulate")
	} else {
		args = append(args, "--no-simulate")
	}
	args = appendCommon(args, s.Quiet, s.Verbose, s.DefaultSearch)
	return append(args, "--", target)
}

func appendCommon(args []string, quiet, verbose bool, defaultSearch string) []string {
	if quiet {
		args = append(args, "--quiet", "--no-warnings")
	}
	if verbose {
		args = append(args, "--verbose")
	}
	if defaultSearch != "" {
		args = append(args, "--default-search", defaultSearch)
	}
	return args
}

// Filename expands the %(id)s and %(ext)s fields of an output template.
func Filename(template, id, ext string) string {
	return strings.NewReplacer("%(id)s", id, "%(ext)s", ext).Replace(template)
}

func nonEmpty(entries []Info) []Info {
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.ID != "" || e.Title != "" {
			out = append(out, e)
		}
	}
	return out
}

func execRunner(stderr io.Writer) RunFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		path, err := exec.LookPath(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s; %s", shared.ErrDownloaderMissing, name, installHint)
		}

		var stdout, errBuf bytes.Buffer
		cmd := exec.CommandContext(ctx, path, args...)
		cmd.Stdout = &stdout
		if stderr != nil {
			cmd.Stderr = io.MultiWriter(&errBuf, stderr)
		} else {
			cmd.Stderr = &errBuf
		}

		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(errBuf.String())
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && msg != "" {
				return nil, fmt.Errorf("%w: %s", shared.ErrDownloadFailed, msg)
			}
			return nil, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
		}

		return stdout.Bytes(), nil
	}
}
