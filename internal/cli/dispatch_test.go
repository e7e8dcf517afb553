package cli_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	flag "github.com/spf13/pflag"

	"github.com/kavih/zabcore/internal/cli"
)

func echoCommand() *cli.Command {
	fs := flag.NewFlagSet("echo", flag.ContinueOnError)
	loud := fs.Bool("loud", false, "shout")

	return &cli.Command{
		Flags: fs,
		Usage: "echo [text]",
		Short: "print its argument",
		Exec: func(_ context.Context, o *cli.IO, args []string) error {
			text := "nothing to say"
			if len(args) > 0 {
				text = args[0]
			}

			if *loud {
				text += "!"
			}

			o.Println(text)

			return nil
		},
	}
}

func TestDispatchRunsNamedCommand(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := cli.Dispatch(context.Background(), "toolx", []*cli.Command{echoCommand()}, &out, &errOut, []string{"echo", "hi"})

	assert.Equal(t, 0, code)
	assert.Equal(t, "hi\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := cli.Dispatch(context.Background(), "toolx", []*cli.Command{echoCommand()}, &out, &errOut, []string{"nope"})

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "unknown command")
}

func TestDispatchNoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := cli.Dispatch(context.Background(), "toolx", []*cli.Command{echoCommand()}, &out, &errOut, nil)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Usage: toolx")
}

func TestCommandFlagParsing(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := cli.Dispatch(context.Background(), "toolx", []*cli.Command{echoCommand()}, &out, &errOut, []string{"echo", "--loud", "hi"})

	assert.Equal(t, 0, code)
	assert.Equal(t, "hi!\n", out.String())
}
