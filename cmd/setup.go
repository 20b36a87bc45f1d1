package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ydl/internal/formatter"
	"github.com/desertthunder/ydl/internal/shared"
)

// SetupDatabase creates the history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	s, err := r.settings(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", s.HistoryDB)
	db, err := shared.OpenHistory(s.HistoryDB)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("setup complete", "path", s.HistoryDB)
	return r.writePlain("%s %s\n", formatter.Styles.OK("✓ database ready:"), s.HistoryDB)
}
