package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ydl/internal/formatter"
	"github.com/desertthunder/ydl/internal/models"
	"github.com/desertthunder/ydl/internal/repositories"
	"github.com/desertthunder/ydl/internal/shared"
)

// History lists recorded downloads, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	s, err := r.settings(cmd)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", shared.ErrInvalidArgument)
	}

	db, err := shared.OpenHistory(s.HistoryDB)
	if err != nil {
		return err
	}
	defer db.Close()

	downloads, err := repositories.NewDownloadRepository(db).List(limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		records := make([]models.DownloadRecord, 0, len(downloads))
		for _, d := range downloads {
			records = append(records, d.Record())
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	if len(downloads) == 0 {
		return r.writePlain("%s\n", formatter.Styles.Help("No downloads recorded yet."))
	}
	return r.writePlain("%s\n", formatter.HistoryTable(downloads))
}
