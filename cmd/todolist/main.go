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

	"github.com/sirupsen/logrus"

	"github.com/nick-dorsch/todolist/internal/config"
	"github.com/nick-dorsch/todolist/internal/logging"
	"github.com/nick-dorsch/todolist/internal/ui"
)

// Swapped out in tests.
var (
	runMenu  = ui.RunMenu
	runBoard = ui.RunBoard
)

const usageText = `Usage: todolist [flags] [command] [arguments]

Running ` + "`todolist`" + ` with no command shows the menu.

Commands:
  tui                        Open the interactive task board
  list                       Print tasks in display order
  add <title> [description]  Add a task
  delete <id>                Delete a task
  complete <id>              Mark a task completed
  reopen <id>                Mark a task open again
  priority <id> <level>      Set priority (low, medium, high)
  describe <id> <text>       Replace a task's description
  move <id> <position>       Move a task before the given 1-based row
  register                   Create the account named by -username
  serve                      Run the reference API server
  mcp                        Serve the task list over MCP on stdio
  init [path]                Write an example config file

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs once flags and config are resolved.
type env struct {
	cfg    *config.Config
	log    *logrus.Entry
	stdout io.Writer
	stderr io.Writer
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("todolist", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	cfg, err := config.Load(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return flag.ErrHelp
		}
		return err
	}

	command := fs.Arg(0)
	var rest []string
	if fs.NArg() > 0 {
		rest = fs.Args()[1:]
	} else {
		selected, err := runMenu()
		if err != nil {
			return fmt.Errorf("running menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		command = selected
	}

	logOpts := logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Output: stderr,
		Fields: logrus.Fields{"command": command},
	}
	if command == "tui" && cfg.Log.File == "" {
		// The board owns the terminal.
		logOpts.Output = io.Discard
	}
	log, closer, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer closer.Close()

	e := &env{cfg: cfg, log: log, stdout: stdout, stderr: stderr}

	switch command {
	case "tui":
		return runTUI(ctx, e)
	case "list":
		return runList(ctx, e)
	case "add":
		return runAdd(ctx, e, rest)
	case "delete":
		return runDelete(ctx, e, rest)
	case "complete":
		return runSetCompleted(ctx, e, rest, true)
	case "reopen":
		return runSetCompleted(ctx, e, rest, false)
	case "priority":
		return runPriority(ctx, e, rest)
	case "describe":
		return runDescribe(ctx, e, rest)
	case "move":
		return runMove(ctx, e, rest)
	case "register":
		return runRegister(ctx, e)
	case "serve":
		return runServe(ctx, e)
	case "mcp":
		return runMCP(ctx, e)
	case "init":
		return runInit(e, rest)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}
