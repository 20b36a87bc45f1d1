package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ydl/internal/models"
	"github.com/desertthunder/ydl/internal/shared"
	"github.com/desertthunder/ydl/internal/tasks"
	tu "github.com/desertthunder/ydl/internal/testing"
	"github.com/desertthunder/ydl/internal/ytdlp"
)

// harness wires a Runner to fakes and a config file rooted in a temp dir.
type harness struct {
	runner     *Runner
	output     *bytes.Buffer
	downloader *tu.FakeDownloader
	tagger     *tu.FakeTagger
	importer   *tu.FakeImporter
	opened     []string
	config     string
	cacheDir   string
	historyDB  string
	settings   []shared.Settings
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	h := &harness{
		output: &bytes.Buffer{},
		downloader: &tu.FakeDownloader{
			Infos: map[string]*ytdlp.Info{
				"one": {ID: "aaa", Title: "Daft Punk - One More Time"},
				"two": {ID: "bbb", Artist: "Justice", Track: "D.A.N.C.E.", Album: "Cross"},
				"https://music.youtube.com/search?q=Daft+Punk+One+More+Time#songs": {ID: "ccc", Artist: "Daft Punk", Track: "One More Time"},
			},
			Extracted: map[string][]ytdlp.Info{
				"https://youtu.be/x": {{ID: "x", Title: "Daft Punk - One More Time"}},
			},
			Errs: map[string]error{},
		},
		tagger:    &tu.FakeTagger{},
		importer:  &tu.FakeImporter{},
		config:    filepath.Join(dir, "config.toml"),
		cacheDir:  filepath.Join(dir, "cache"),
		historyDB: filepath.Join(dir, "data", "ydl.db"),
	}

	h.writeConfig(t, shared.Options{})
	t.Setenv(shared.ConfigEnv, h.config)
	h.runner = NewRunner(RunnerOpts{
		Logger: log.New(io.Discard),
		Output: h.output,
		Engine: func(s shared.Settings, logger *log.Logger, out io.Writer) *tasks.Engine {
			h.settings = append(h.settings, s)
			return tasks.NewEngine(h.downloader, h.tagger, h.importer, logger, out)
		},
		OpenBrowser: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
	})
	return h
}

func (h *harness) writeConfig(t *testing.T, extra shared.Options) {
	t.Helper()
	o := shared.Options{
		shared.KeyCacheDir:  h.cacheDir,
		shared.KeyHistoryDB: h.historyDB,
	}
	for k, v := range extra {
		o[k] = v
	}

	f, err := os.Create(h.config)
	if err != nil {
		t.Fatalf("failed to create config: %v", err)
	}
	defer f.Close()
	if err := shared.WriteOptions(f, o); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func (h *harness) run(args ...string) error {
	return h.runner.app().Run(context.Background(), append([]string{"ydl"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{Logger: logger, Output: output})

			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.newEngine == nil || runner.openBrowser == nil {
				t.Error("expected default engine and browser")
			}
		})

		t.Run("registers every command", func(t *testing.T) {
			var names []string
			for _, c := range NewRunner(RunnerOpts{}).register() {
				names = append(names, c.Name)
			}
			for _, want := range []string{"download", "ymdl", "search", "history", "cache", "config", "setup"} {
				if !slices.Contains(names, want) {
					t.Errorf("expected %s command, got %v", want, names)
				}
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("%s=%d\n", "n", 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "n=1\n" {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := NewRunner(RunnerOpts{Output: &tu.FWriter{}}).writePlain("x"); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestExitCode(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if code := exitCode(nil); code != 0 {
			t.Errorf("expected 0, got %d", code)
		}
	})

	t.Run("generic error", func(t *testing.T) {
		if code := exitCode(shared.ErrDownloadFailed); code != 1 {
			t.Errorf("expected 1, got %d", code)
		}
	})

	t.Run("import failure keeps the importer's status", func(t *testing.T) {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh not available")
		}
		runErr := exec.Command("sh", "-c", "exit 3").Run()
		err := fmt.Errorf("%w: %w", shared.ErrImportFailed, runErr)
		if code := exitCode(err); code != 3 {
			t.Errorf("expected 3, got %d", code)
		}
	})
}

func TestDownloadCommand(t *testing.T) {
	t.Run("downloads, records and imports", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("download", "one", "two"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(h.downloader.Downloaded, []string{"one", "two"}) {
			t.Errorf("unexpected downloads %v", h.downloader.Downloaded)
		}
		if len(h.importer.Calls) != 1 || !slices.Equal(h.importer.Calls[0], []string{h.cacheDir}) {
			t.Errorf("expected group import of cache dir, got %v", h.importer.Calls)
		}

		out := h.output.String()
		for _, want := range []string{"Downloaded: Daft Punk - One More Time ()", "Downloaded: Justice - D.A.N.C.E. (Cross)", "2 downloaded"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}

		h.output.Reset()
		if err := h.run("history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var records []models.DownloadRecord
		if err := json.Unmarshal(h.output.Bytes(), &records); err != nil {
			t.Fatalf("invalid history JSON %q: %v", h.output.String(), err)
		}
		if len(records) != 2 || records[0].VideoID != "bbb" || records[1].Source != models.SourceTitle {
			t.Errorf("unexpected history %+v", records)
		}
	})

	t.Run("aliases", func(t *testing.T) {
		for _, alias := range []string{"ydl", "dl"} {
			h := newHarness(t)
			if err := h.run(alias, "one"); err != nil {
				t.Fatalf("%s: unexpected error: %v", alias, err)
			}
			if len(h.downloader.Downloaded) != 1 {
				t.Errorf("%s: expected one download", alias)
			}
		}
	})

	t.Run("flags override the config file", func(t *testing.T) {
		h := newHarness(t)
		h.writeConfig(t, shared.Options{shared.KeyKeepFiles: true, shared.KeyImportMode: shared.ImportModeGroup})

		if err := h.run("download", "-s", "-f", "--no-import", "one"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s := h.settings[0]
		if s.ImportMode != shared.ImportModeSingleton || !s.ForceDownload || s.Import {
			t.Errorf("expected flags to win, got %+v", s)
		}
		if !s.KeepFiles {
			t.Error("expected keep_files from the config file to survive unset flags")
		}
		if s.Downloader.NoOverwrites || s.Downloader.NoPostOverwrites {
			t.Error("expected force download to clear overwrite protection")
		}
		if len(h.importer.Calls) != 0 {
			t.Error("expected no import")
		}
	})

	t.Run("no download imports cached files", func(t *testing.T) {
		h := newHarness(t)
		if err := os.MkdirAll(h.cacheDir, 0o755); err != nil {
			t.Fatal(err)
		}
		cached := filepath.Join(h.cacheDir, "old.opus")
		if err := os.WriteFile(cached, nil, 0o644); err != nil {
			t.Fatal(err)
		}

		if err := h.run("download", "--no-download", "--singleton", "--keep-files"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.downloader.Downloaded) != 0 {
			t.Error("expected no downloads")
		}
		if len(h.importer.Calls) != 1 || !slices.Equal(h.importer.Calls[0], []string{cached}) {
			t.Errorf("expected import of %s, got %v", cached, h.importer.Calls)
		}
		if !h.importer.Options[0].Keep {
			t.Error("expected copy mode")
		}
	})

	t.Run("nothing to do", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("download", "--no-import"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("failure aborts before import", func(t *testing.T) {
		h := newHarness(t)
		h.downloader.Errs["bad"] = shared.ErrDownloadFailed

		err := h.run("download", "bad", "one")
		if !errors.Is(err, shared.ErrDownloadFailed) {
			t.Fatalf("expected ErrDownloadFailed, got %v", err)
		}
		if len(h.importer.Calls) != 0 {
			t.Error("expected no import")
		}
		if exitCode(err) != 1 {
			t.Errorf("expected exit code 1, got %d", exitCode(err))
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		h := newHarness(t)
		if err := os.WriteFile(h.config, []byte("cachedir = ["), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := h.run("download", "one"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("history disabled", func(t *testing.T) {
		h := newHarness(t)
		h.writeConfig(t, shared.Options{shared.KeyHistory: false})

		if err := h.run("download", "one"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(h.historyDB); !os.IsNotExist(err) {
			t.Error("expected no history database")
		}
	})
}

func TestYmdlCommand(t *testing.T) {
	h := newHarness(t)

	if err := h.run("ymdl", "https://youtu.be/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://music.youtube.com/search?q=Daft+Punk+One+More+Time#songs"}
	if !slices.Equal(h.downloader.Downloaded, want) {
		t.Errorf("expected %v, got %v", want, h.downloader.Downloaded)
	}
}

func TestSearchCommand(t *testing.T) {
	t.Run("prints urls", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("search", "https://youtu.be/x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "q=Daft+Punk+One+More+Time#songs") {
			t.Errorf("unexpected output %q", h.output.String())
		}
		if len(h.opened) != 0 {
			t.Error("expected no browser without --open")
		}
		if len(h.downloader.Downloaded) != 0 {
			t.Error("search must not download")
		}
	})

	t.Run("opens urls", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("search", "--open", "https://youtu.be/x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.opened) != 1 {
			t.Errorf("expected one opened url, got %v", h.opened)
		}
	})

	t.Run("requires an argument", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("history"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "No downloads recorded yet.") {
			t.Errorf("unexpected output %q", h.output.String())
		}
	})

	t.Run("table with limit", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("download", "--no-import", "one", "two"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		h.output.Reset()
		if err := h.run("history", "--limit", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		if !strings.Contains(out, "Justice") || strings.Contains(out, "Daft Punk") {
			t.Errorf("expected only the newest download, got %q", out)
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("history", "--limit=-1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestCacheCommand(t *testing.T) {
	h := newHarness(t)
	if err := os.MkdirAll(h.cacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.opus", "b.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(h.cacheDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := h.run("cache", "list"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	out := h.output.String()
	if !strings.Contains(out, "a.opus") || !strings.Contains(out, "b.mp3") || strings.Contains(out, "notes.txt") {
		t.Errorf("unexpected listing %q", out)
	}

	h.output.Reset()
	if err := h.run("cache", "clean"); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if !strings.Contains(h.output.String(), "removed 2 file(s)") {
		t.Errorf("unexpected output %q", h.output.String())
	}
	tu.AssertFileExists(t, filepath.Join(h.cacheDir, "notes.txt"))

	h.output.Reset()
	if err := h.run("cache", "list"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(h.output.String(), "Cache is empty") {
		t.Errorf("unexpected output %q", h.output.String())
	}
	if err := h.run("cache", "clean"); err != nil {
		t.Fatalf("clean should release the cache lock: %v", err)
	}

	lock, err := shared.LockCache(h.cacheDir)
	if err != nil {
		t.Fatalf("failed to lock cache: %v", err)
	}
	defer lock.Unlock()
	if err := h.run("cache", "clean"); !errors.Is(err, shared.ErrCacheLocked) {
		t.Errorf("expected ErrCacheLocked while another process holds the cache, got %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	t.Run("show merges the config file", func(t *testing.T) {
		h := newHarness(t)
		h.writeConfig(t, shared.Options{shared.KeyRateLimit: 5})

		if err := h.run("config", "show"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		for _, want := range []string{"rate_limit = 5", "[youtubedl_config]", h.cacheDir} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
	})

	t.Run("init writes the example", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "new", "config.toml")

		if err := h.runner.app().Run(context.Background(), []string{"ydl", "config", "init", "--config", path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "youtubedl_config") {
			t.Error("expected the example config")
		}

		if err := h.runner.app().Run(context.Background(), []string{"ydl", "config", "init", "--config", path}); err == nil {
			t.Error("expected an error when the file exists")
		}
	})
}

func TestOutputWriteFailure(t *testing.T) {
	for _, args := range [][]string{
		{"download", "--no-import", "one"},
		{"search", "https://youtu.be/x"},
	} {
		h := newHarness(t)
		h.runner.output = &tu.FWriter{}

		if err := h.run(args...); err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("%v: expected write error, got %v", args, err)
		}
	}
}

func TestConfigMissingFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	for _, args := range [][]string{
		{"config", "show", "--config", path},
		{"download", "--config", path, "one"},
	} {
		err := h.run(args...)
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("%v: expected ErrMissingConfig, got %v", args, err)
		}
	}
	if len(h.downloader.Downloaded) != 0 {
		t.Errorf("expected no downloads, got %v", h.downloader.Downloaded)
	}
}

func TestProgressLogging(t *testing.T) {
	t.Run("verbose download logs each phase", func(t *testing.T) {
		h := newHarness(t)
		var logs bytes.Buffer
		h.runner.logger = log.New(&logs)

		if err := h.run("download", "-v", "one"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := logs.String()
		for _, want := range []string{"Downloading one", "Tagging Daft Punk - One More Time", "Recording aaa", "Importing 1 path(s) as group", "phase=fetch", "phase=import"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in logs %q", want, out)
			}
		}
	})

	t.Run("search logs lookups", func(t *testing.T) {
		h := newHarness(t)
		var logs bytes.Buffer
		h.runner.logger = log.New(&logs)

		if err := h.run("search", "-v", "https://youtu.be/x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(logs.String(), "Looking up https://youtu.be/x") {
			t.Errorf("expected lookup in logs %q", logs.String())
		}
	})

	t.Run("quiet by default", func(t *testing.T) {
		h := newHarness(t)
		var logs bytes.Buffer
		h.runner.logger = log.New(&logs)

		if err := h.run("download", "one"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(logs.String(), "Downloading one") {
			t.Errorf("progress should only log at debug level, got %q", logs.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	h := newHarness(t)

	if err := h.run("setup", "database"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tu.AssertFileExists(t, h.historyDB)
	if !strings.Contains(h.output.String(), "database ready") {
		t.Errorf("unexpected output %q", h.output.String())
	}
}

func TestVersionFlagDoesNotShadowVerbose(t *testing.T) {
	h := newHarness(t)

	if err := h.run("download", "-v", "--no-import", "one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.settings[0].Verbose {
		t.Error("expected -v to enable verbose")
	}
}
