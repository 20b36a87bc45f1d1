// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
		Local:   true,
	}
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "ydl",
		Usage:    "Download audio with yt-dlp, tag it and import it into beets",
		Version:  "0.1.0",
		Writer:   r.output,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, ymdlCommand, searchCommand, historyCommand, cacheCommand, configCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (default: $YDL_CONFIG or ~/.config/ydl/config.toml)",
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable diagnostic logging",
	}
}

// downloadFlags are shared by download and ymdl.
func downloadFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		verboseFlag(),
		&cli.BoolFlag{
			Name:  "no-import",
			Usage: "Skip the beets import",
		},
		&cli.BoolFlag{
			Name:  "no-download",
			Usage: "Skip fetching; import what is already cached",
		},
		&cli.BoolFlag{
			Name:    "force-download",
			Aliases: []string{"f"},
			Usage:   "Overwrite cached files",
		},
		&cli.BoolFlag{
			Name:    "keep-files",
			Aliases: []string{"k"},
			Usage:   "Copy into the library instead of moving",
		},
		&cli.BoolFlag{
			Name:    "singleton",
			Aliases: []string{"s"},
			Usage:   "Import tracks as singletons instead of as a group",
		},
	}
}

// downloadCommand fetches, tags and imports each argument
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"ydl", "dl"},
		Usage:     "Download URLs or search strings and import them",
		ArgsUsage: "[url or search...]",
		Flags:     downloadFlags(),
		Action:    r.Download,
	}
}

// ymdlCommand downloads the YouTube Music match for each argument
func ymdlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "ymdl",
		Usage:     "Resolve videos or playlists to YouTube Music searches, then download",
		ArgsUsage: "[url or search...]",
		Flags:     downloadFlags(),
		Action:    r.YouTubeMusic,
	}
}

// searchCommand prints YouTube Music search URLs
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Print YouTube Music search URLs for videos or playlists",
		ArgsUsage: "[url or search...]",
		Flags: []cli.Flag{
			configFlag(),
			verboseFlag(),
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open each URL in the browser",
			},
		},
		Action: r.Search,
	}
}

// historyCommand lists recorded downloads
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded downloads",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of downloads to show (0 for all)",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.History,
	}
}

// cacheCommand manages the download cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clean the download cache",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List cached audio files",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheList,
			},
			{
				Name:   "clean",
				Usage:  "Delete cached audio files",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheClean,
			},
		},
	}
}

// configCommand shows or creates the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or create the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigShow,
			},
			{
				Name:   "init",
				Usage:  "Write the example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
		},
	}
}

// setupCommand prepares local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Prepare local state",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the history database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}
