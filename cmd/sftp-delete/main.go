package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"sftp-tools/internal/exitcodes"
	"sftp-tools/internal/runner"
)

// listFlags take one or more names each, matched literally
var listFlags = []string{"exclude_dirs", "exclude-dirs", "keep_files", "keep-files"}

// nameSeparator never occurs in an argument, so a comma stays part of the name
const nameSeparator = "\x00"

func main() {
	args, err := runner.FlagsFirst(os.Args, listFlags...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(runner.ExitCode(nil, err))
	}
	if err := newApp(run).Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitcodes.InvalidConfig)
	}
}

func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:               "sftp-delete",
		Usage:              "Recursively delete remote files and directories over SFTP",
		ArgsUsage:          "host username password remote_path",
		SliceFlagSeparator: nameSeparator,
		// A host called "h" or "help" must not trigger the help command
		HideHelpCommand: true,
		Flags: append(runner.CommonFlags(),
			&cli.StringSliceFlag{
				Name:    "exclude_dirs",
				Aliases: []string{"exclude-dirs"},
				Usage:   "directory name to leave untouched, with its whole subtree (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "keep_files",
				Aliases: []string{"keep-files"},
				Usage:   "file name never to delete (repeatable)",
			},
		),
		Action: action,
	}
}

func run(c *cli.Context) error {
	opts, err := runner.OptionsFromContext(c, 4)
	if err != nil {
		_ = cli.ShowAppHelp(c)
		return cli.Exit(err, runner.ExitCode(nil, err))
	}
	remotePath := c.Args().Get(3)

	env, err := runner.Setup(opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: %v", err), runner.ExitCode(nil, err))
	}
	defer env.Close()

	ctx, cancel := runner.SignalContext(env.Logger)
	defer cancel()

	session, err := env.Connect(ctx)
	if err != nil {
		return exit(env.Complete(nil, err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			env.Logger.Warnw("Failed to close SFTP session", "error", err)
		}
	}()

	report, err := env.NewCleaner(session).Run(ctx, remotePath, c.StringSlice("exclude_dirs"), c.StringSlice("keep_files"))
	return exit(env.Complete(report, err))
}

func exit(code int) error {
	if code == exitcodes.Success {
		return nil
	}
	return cli.Exit("", code)
}
