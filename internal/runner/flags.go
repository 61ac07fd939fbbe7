package runner

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// CommonFlags are accepted by both transfer commands
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "optional YAML configuration file",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "SSH port (default 22, or connection.port from config)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
	}
}

// OptionsFromContext reads the positional credentials and common flags.
// want is the number of positional arguments the command takes; the first
// three are always host, username and password.
func OptionsFromContext(c *cli.Context, want int) (Options, error) {
	if c.NArg() != want {
		return Options{}, fmt.Errorf("%w: expected %d arguments, got %d", ErrUsage, want, c.NArg())
	}
	return Options{
		ConfigPath: c.String("config"),
		Host:       c.Args().Get(0),
		Username:   c.Args().Get(1),
		Password:   c.Args().Get(2),
		Port:       c.Int("port"),
		LogLevel:   c.String("log-level"),
	}, nil
}
