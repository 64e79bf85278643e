// Command graphtool inspects and normalizes behavior graph documents offline.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmds := commands()
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printHelp(stderr, cmds)
		return nil
	}

	var cmd command
	for _, c := range cmds {
		if c.Name() == args[0] {
			cmd = c
			break
		}
	}
	if cmd == nil {
		printHelp(stderr, cmds)
		return fmt.Errorf("unknown command: %s", args[0])
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: graphtool %s\n\n%s\n\nOptions:\n", cmd.Usage(), cmd.Description())
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	return cmd.Execute(fs.Args(), stdout, stderr)
}

func printHelp(w io.Writer, cmds []command) {
	_, _ = fmt.Fprintln(w, "Usage: graphtool <command> [options] [args]")
	_, _ = fmt.Fprintln(w, "\nCommands:")
	for _, c := range cmds {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", c.Name(), c.Description())
	}
}
