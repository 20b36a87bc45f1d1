package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ydl/internal/beets"
	"github.com/desertthunder/ydl/internal/shared"
	"github.com/desertthunder/ydl/internal/tagger"
	"github.com/desertthunder/ydl/internal/tasks"
	"github.com/desertthunder/ydl/internal/ytdlp"
)

// EngineFactory builds the pipeline for one run from the resolved settings.
type EngineFactory func(s shared.Settings, logger *log.Logger, out io.Writer) *tasks.Engine

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger      *log.Logger
	output      io.Writer
	newEngine   EngineFactory
	openBrowser func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger      *log.Logger
	Output      io.Writer
	Engine      EngineFactory
	OpenBrowser func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Engine == nil {
		opts.Engine = defaultEngine
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		logger:      opts.Logger,
		output:      opts.Output,
		newEngine:   opts.Engine,
		openBrowser: opts.OpenBrowser,
	}
}

func defaultEngine(s shared.Settings, logger *log.Logger, out io.Writer) *tasks.Engine {
	var stderr io.Writer
	if s.Verbose {
		stderr = os.Stderr
	}
	return tasks.NewEngine(
		ytdlp.New(s.YtdlpCommand, stderr),
		tagger.New(),
		beets.New(s.BeetCommand),
		logger,
		out,
	)
}

// exitCode maps a run error to the process status. A failed import exits with the
// importer's own status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, shared.ErrImportFailed) {
		if code, ok := beets.ExitCode(err); ok && code > 0 {
			return code
		}
	}
	return 1
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
