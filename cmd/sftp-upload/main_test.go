package main

import (
	"io"
	"reflect"
	"testing"

	"github.com/urfave/cli/v2"

	"sftp-tools/internal/runner"
)

func TestHostNamedLikeHelp(t *testing.T) {
	for _, host := range []string{"h", "help"} {
		t.Run(host, func(t *testing.T) {
			args, err := runner.FlagsFirst([]string{"sftp-upload", host, "u", "p", "./site", "/srv/www", "--port", "2222"})
			if err != nil {
				t.Fatalf("FlagsFirst failed: %v", err)
			}

			var got []string
			var port int
			app := newApp(func(c *cli.Context) error {
				got = c.Args().Slice()
				port = c.Int("port")
				return nil
			})
			app.Writer = io.Discard
			if err := app.Run(args); err != nil {
				t.Fatalf("app.Run failed: %v", err)
			}

			if want := []string{host, "u", "p", "./site", "/srv/www"}; !reflect.DeepEqual(got, want) {
				t.Errorf("Positional args = %q, want %q", got, want)
			}
			if port != 2222 {
				t.Errorf("Expected port 2222, got %d", port)
			}
		})
	}
}
