package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// isTerminal reports whether stdin is interactive. The prompt is only shown
// when it is, so piped command files produce clean output.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

const helpText = `Available commands:
  status                                   mode, last sync and record counts
  pull [all|foods|entries|users|expenditure]
  push                                     upload local changes
  sync                                     pull, then push
  dedup [foods|entries]                    remove local duplicates
  today                                    today's diary and totals
  addfood | log | burn                     add a food, an entry or burned calories
  export <file> | import <file>            local backup file
  backup | restore <key>                   S3 backup
  exit | quit`

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	Pull(ctx context.Context, args []string) error
	Push(ctx context.Context) error
	Sync(ctx context.Context) error
	Dedup(ctx context.Context, args []string) error
	Today(ctx context.Context) error
	AddFood(ctx context.Context) error
	Log(ctx context.Context) error
	Burn(ctx context.Context) error
	Export(ctx context.Context, path string) error
	Import(ctx context.Context, path string) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context, key string) error
}

// runREPL reads one command per line from scanner and dispatches it to a.
// The loop exits on scanner EOF or when the user types "exit" or "quit".
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	prompt := isTerminal()
	for {
		if prompt {
			printlnFn(fmt.Sprintf("foodlog %s > ", statusFn()))
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "status":
			err = a.Status(ctx)

		case "pull":
			err = a.Pull(ctx, args)

		case "push":
			err = a.Push(ctx)

		case "sync":
			err = a.Sync(ctx)

		case "dedup":
			err = a.Dedup(ctx, args)

		case "today":
			err = a.Today(ctx)

		case "addfood":
			err = a.AddFood(ctx)

		case "log":
			err = a.Log(ctx)

		case "burn":
			err = a.Burn(ctx)

		case "export", "import", "restore":
			if len(args) != 1 {
				arg := "<file>"
				if cmd == "restore" {
					arg = "<key>"
				}
				printlnFn("Usage:", cmd, arg)
				continue
			}
			switch cmd {
			case "export":
				err = a.Export(ctx, args[0])
			case "import":
				err = a.Import(ctx, args[0])
			default:
				err = a.Restore(ctx, args[0])
			}

		case "backup":
			err = a.Backup(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
