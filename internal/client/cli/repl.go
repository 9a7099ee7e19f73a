package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL needs. App satisfies it; tests
// provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	New(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Attach(ctx context.Context, args []string) error
	Place(ctx context.Context, args []string) error
	Schedule(ctx context.Context, args []string) error
	Resubmit(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = `Available commands:
  new                              create a draft
  edit <id>                        replace title and content
  attach <id> <path>               attach an image
  place <id> <lat> <lng> [address] set the place (or: place <id> clear)
  schedule <id> <when>             schedule and submit (+2h, 2026-01-02 15:04)
  resubmit <id>                    submit a scheduled post again
  (l)ist [window] [state]          window: today, week, month, all; state: draft, scheduled, published
  show <id>                        show a post
  delete <id>                      delete a post from this device
  sync                             confirm publications with the server
  logout, exit`
)

// runREPL reads commands from scanner until EOF or "exit"/"quit". The first
// token selects the command; the rest are passed as arguments. Post commands
// are available only after login.
//
// Handler errors are ignored here; handlers report them to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "register":
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		handler := postCommand(a, cmd)
		if handler == nil {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}
		_ = handler(ctx, args)
	}
}

func postCommand(a execIface, cmd string) func(context.Context, []string) error {
	switch cmd {
	case "new":
		return a.New
	case "edit":
		return a.Edit
	case "attach":
		return a.Attach
	case "place":
		return a.Place
	case "schedule":
		return a.Schedule
	case "resubmit":
		return a.Resubmit
	case "l", "list":
		return a.List
	case "show":
		return a.Show
	case "delete", "rm":
		return a.Delete
	case "sync":
		return a.Sync
	case "logout":
		return func(ctx context.Context, _ []string) error { return a.Logout(ctx) }
	default:
		return nil
	}
}
