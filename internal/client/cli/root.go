package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := strings.TrimSpace(a.userName + " " + string(a.mode))
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root asks for credentials, starts the connectivity watcher and runs the
// REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.writer(), "Welcome to PostKeeper CLI (type 'help' for commands)")

	_ = a.Login(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
