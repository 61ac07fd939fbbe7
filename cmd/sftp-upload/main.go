package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"sftp-tools/internal/exitcodes"
	"sftp-tools/internal/runner"
)

func main() {
	args, err := runner.FlagsFirst(os.Args)
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
		Name:      "sftp-upload",
		Usage:     "Recursively upload a local directory to a remote path over SFTP",
		ArgsUsage: "host username password local_dir remote_dir",
		// A host called "h" or "help" must not trigger the help command
		HideHelpCommand: true,
		Flags:           runner.CommonFlags(),
		Action:          action,
	}
}

func run(c *cli.Context) error {
	opts, err := runner.OptionsFromContext(c, 5)
	if err != nil {
		_ = cli.ShowAppHelp(c)
		return cli.Exit(err, runner.ExitCode(nil, err))
	}
	localDir := c.Args().Get(3)
	remoteDir := c.Args().Get(4)

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

	report, err := env.NewUploader(session).Run(ctx, localDir, remoteDir)
	return exit(env.Complete(report, err))
}

func exit(code int) error {
	if code == exitcodes.Success {
		return nil
	}
	return cli.Exit("", code)
}
