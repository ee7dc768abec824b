// Command timetrack is the terminal client of the time tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const helpMsg = `Usage: timetrack [--config file] [--v] <command> [flags] [args]

Commands:
  list     [--project name]                       list events
  add      --project p [--hours h] [--date d] [--description text]
  show     <id>                                   show one event
  edit     <id> [--project p] [--hours h] [--date d] [--description text]
  delete   <id> [--yes]                           delete an event after confirmation
  report                                          monthly and weekly hour totals
  export   [--out file] [--domain name]           write events as iCalendar

Dates accept YYYY-MM-DD or phrases like "yesterday".
`

// errUsage marks errors caused by bad command lines.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("timetrack", flag.ContinueOnError)
	global.SetOutput(stderr)
	confPath := global.String("config", "", "Path to config file")
	verbose := global.Bool("v", false, "Show error details and debug logs")
	global.Usage = func() { fmt.Fprint(stderr, helpMsg) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		fmt.Fprint(stderr, helpMsg)
		return 2
	}

	a, err := newApp(*confPath, *verbose, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := a.commands()[name]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", name)
		fmt.Fprint(stderr, helpMsg)
		return 2
	}
	if err := cmd(ctx, rest); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, helpMsg)
			return 2
		}
		return 1
	}
	return 0
}
