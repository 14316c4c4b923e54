// Command scoreparse runs the preview/confirm pipeline against local files.
//
// Sessions are kept in a sqlite database and uploads in a directory under
// -data, so a preview can be confirmed by a later invocation.
//
// Usage:
//
//	scoreparse preview <file>
//	scoreparse confirm [-override plan.yaml] [-enrich] [-example style.txt] [-format csv] <session-id>
//	scoreparse records [-entity name] [-q keyword] [-format csv] <session-id>
//	scoreparse execute -mapping plan.yaml [-format csv] <file>
//	scoreparse purge [-retention 24h]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `Usage: scoreparse <command> [flags] [args]

Commands:
  preview <file>              extract, infer a mapping and store a session
  confirm <session-id>        execute the stored mapping (with optional override)
  records <session-id>        look up records of a confirmed session
  execute <file>              run a mapping file directly, no reasoning calls
  purge                       delete sessions past expiry
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "scoreparse:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "preview":
		return runPreview(ctx, args[1:], stdout)
	case "confirm":
		return runConfirm(ctx, args[1:], stdout)
	case "records":
		return runRecords(ctx, args[1:], stdout)
	case "execute":
		return runExecute(args[1:], stdout)
	case "purge":
		return runPurge(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
