package cli

import (
	"context"
	"fmt"
	"io"
)

// Dispatch resolves args[0] against commands and runs it, printing
// top-level usage when no command is given or it isn't recognized.
// binary is the program name shown in usage text. Returns the process
// exit code.
func Dispatch(ctx context.Context, binary string, commands []*Command, out, errOut io.Writer, args []string) int {
	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	if len(args) == 0 {
		printUsage(out, binary, commands)
		return 0
	}

	if args[0] == "-h" || args[0] == "--help" {
		printUsage(out, binary, commands)
		return 0
	}

	cmd, ok := commandMap[args[0]]
	if !ok {
		fprintln(errOut, "error: unknown command:", args[0])
		printUsage(errOut, binary, commands)

		return 1
	}

	cmdIO := NewIO(out, errOut)

	exitCode := cmd.Run(ctx, cmdIO, args[1:])
	if exitCode != 0 {
		return exitCode
	}

	return cmdIO.Finish()
}

func printUsage(w io.Writer, binary string, commands []*Command) {
	fprintln(w, fmt.Sprintf("Usage: %s <command> [args]", binary))
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
