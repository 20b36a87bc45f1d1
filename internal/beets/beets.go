// package beets runs `beet import` to bring downloaded files into a beets library.
package beets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/desertthunder/ydl/internal/shared"
)

// RunFunc executes name with args attached to the given streams.
type RunFunc func(ctx context.Context, streams Streams, name string, args ...string) error

// Streams are the standard streams handed to the import process. Imports can prompt,
// so stdin is passed through.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Options controls a single import invocation.
type Options struct {
	Verbose bool
	// Keep copies files into the library instead of moving them.
	Keep bool
	// Mode is shared.ImportModeGroup or shared.ImportModeSingleton.
	Mode string
}

// Importer invokes the beets command line.
type Importer struct {
	binary  string
	streams Streams
	run     RunFunc
}

// New creates an Importer for binary attached to the process's standard streams.
func New(binary string) *Importer {
	return NewWithRunner(binary, Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}, execRunner)
}

// NewWithRunner creates an Importer that executes through run.
func NewWithRunner(binary string, streams Streams, run RunFunc) *Importer {
	if binary == "" {
		binary = "beet"
	}
	return &Importer{binary: binary, streams: streams, run: run}
}

// Args builds the argument list: [-v] import (-g|-s) (-c|-m) paths...
func Args(paths []string, o Options) []string {
	var args []string
	if o.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "import")
	if o.Mode == shared.ImportModeSingleton {
		args = append(args, "-s")
	} else {
		args = append(args, "-g")
	}
	if o.Keep {
		args = append(args, "-c")
	} else {
		args = append(args, "-m")
	}
	return append(args, paths...)
}

// Command returns the full command line, binary included.
func (i *Importer) Command(paths []string, o Options) []string {
	return append([]string{i.binary}, Args(paths, o)...)
}

// Import runs the import. A non-zero exit is wrapped in [shared.ErrImportFailed] and keeps
// the underlying *exec.ExitError reachable through errors.As.
func (i *Importer) Import(ctx context.Context, paths []string, o Options) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: nothing to import", shared.ErrMissingArgument)
	}

	if err := i.run(ctx, i.streams, i.binary, Args(paths, o)...); err != nil {
		if errors.Is(err, shared.ErrImporterMissing) {
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrImportFailed, err)
	}
	return nil
}

// ExitCode extracts the subprocess exit status from err, if any.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

func execRunner(ctx context.Context, streams Streams, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrImporterMissing, name)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr
	return cmd.Run()
}
