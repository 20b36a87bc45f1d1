package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ydl/internal/formatter"
	"github.com/desertthunder/ydl/internal/shared"
)

// ConfigShow prints the effective configuration: defaults merged with the config file.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	o, err := r.options(cmd)
	if err != nil {
		return err
	}
	return shared.WriteOptions(r.output, o)
}

// ConfigInit writes the example configuration to the config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := shared.ConfigPath(cmd.String("config"))
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("%s %s\n", formatter.Styles.OK("✓ wrote"), path)
}
