package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ydl/internal/formatter"
	"github.com/desertthunder/ydl/internal/repositories"
	"github.com/desertthunder/ydl/internal/shared"
	"github.com/desertthunder/ydl/internal/tasks"
)

// flagOptions returns the options layer for flags the user set explicitly. Unset flags
// must not mask values from the config file.
func flagOptions(cmd *cli.Command) shared.Options {
	o := shared.Options{}
	if cmd.IsSet("verbose") {
		o[shared.KeyVerbose] = cmd.Bool("verbose")
	}
	if cmd.IsSet("no-import") {
		o[shared.KeyImport] = !cmd.Bool("no-import")
	}
	if cmd.IsSet("no-download") {
		o[shared.KeyDownload] = !cmd.Bool("no-download")
	}
	if cmd.IsSet("force-download") {
		o[shared.KeyForceDownload] = cmd.Bool("force-download")
	}
	if cmd.IsSet("keep-files") {
		o[shared.KeyKeepFiles] = cmd.Bool("keep-files")
	}
	if cmd.IsSet("singleton") && cmd.Bool("singleton") {
		o[shared.KeyImportMode] = shared.ImportModeSingleton
	}
	return o
}

// options resolves defaults, the config file and flags, in that order.
func (r *Runner) options(cmd *cli.Command) (shared.Options, error) {
	path, overrides, err := shared.LoadUserConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	r.logger.Debug("loaded config", "path", path, "keys", len(overrides))
	return shared.Resolve(shared.Defaults(), overrides, flagOptions(cmd)), nil
}

func (r *Runner) settings(cmd *cli.Command) (shared.Settings, error) {
	o, err := r.options(cmd)
	if err != nil {
		return shared.Settings{}, err
	}
	s := shared.NewSettings(o)
	shared.SetVerbose(r.logger, s.Verbose)
	return s, nil
}

// engine builds the pipeline and attaches history when enabled. The returned closer is
// always safe to call.
func (r *Runner) engine(s shared.Settings) (*tasks.Engine, func()) {
	e := r.newEngine(s, r.logger, r.output)
	if !s.History {
		return e, func() {}
	}

	db, err := shared.OpenHistory(s.HistoryDB)
	if err != nil {
		r.logger.Warn("history disabled", "path", s.HistoryDB, "error", err)
		return e, func() {}
	}

	e.WithRecorder(repositories.NewHistoryRecorder(repositories.NewDownloadRepository(db)))
	return e, closeDB(r, db)
}

func closeDB(r *Runner, db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close history database", "error", err)
		}
	}
}

// Download fetches, tags and imports each argument.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	return r.run(ctx, cmd, func(e *tasks.Engine, progress chan<- tasks.ProgressUpdate, s shared.Settings, args []string) (*tasks.RunResult, error) {
		return e.Download(ctx, progress, s, args)
	})
}

// YouTubeMusic downloads the YouTube Music search result for each argument.
func (r *Runner) YouTubeMusic(ctx context.Context, cmd *cli.Command) error {
	return r.run(ctx, cmd, func(e *tasks.Engine, progress chan<- tasks.ProgressUpdate, s shared.Settings, args []string) (*tasks.RunResult, error) {
		return e.YouTubeMusic(ctx, progress, s, args)
	})
}

type runFunc func(e *tasks.Engine, progress chan<- tasks.ProgressUpdate, s shared.Settings, args []string) (*tasks.RunResult, error)

// watchProgress logs engine progress at debug level. The returned stop func closes the
// channel and waits for the last update to be logged.
func (r *Runner) watchProgress() (chan<- tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.logger.Debug(update.Message, "phase", update.Phase.String())
		}
	}()
	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

func (r *Runner) run(ctx context.Context, cmd *cli.Command, fn runFunc) error {
	s, err := r.settings(cmd)
	if err != nil {
		return err
	}

	args := cmd.Args().Slice()
	if s.Download && len(args) == 0 && !s.Import {
		return fmt.Errorf("%w: nothing to download", shared.ErrMissingArgument)
	}

	e, done := r.engine(s)
	defer done()

	r.logger.Debug("starting run", "args", len(args), "download", s.Download, "import", s.Import, "mode", s.ImportMode)
	progress, stop := r.watchProgress()
	res, err := fn(e, progress, s, args)
	stop()
	if err != nil {
		return err
	}

	if n := len(res.Downloads); n > 0 {
		if err := r.writePlain("%s\n", formatter.Styles.OK(fmt.Sprintf("✓ %d downloaded", n))); err != nil {
			return err
		}
	}
	if len(res.Imported) > 0 {
		return r.writePlain("%s\n", formatter.Styles.OK("✓ imported into beets"))
	}
	return nil
}

// Search prints a YouTube Music search URL for each video found.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	s, err := r.settings(cmd)
	if err != nil {
		return err
	}

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: expected at least one URL or search", shared.ErrMissingArgument)
	}

	progress, stop := r.watchProgress()
	urls, err := r.newEngine(s, r.logger, r.output).SearchURLs(ctx, progress, s, args)
	stop()
	if err != nil {
		return err
	}

	for _, u := range urls {
		if err := r.writePlain("%s\n", u); err != nil {
			return err
		}
		if cmd.Bool("open") {
			if err := r.openBrowser(u); err != nil {
				return err
			}
		}
	}
	return nil
}
