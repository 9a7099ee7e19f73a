// Package cli provides the interactive PostKeeper command-line client.
//
// It wires configuration, the local post store, the API client and an
// interactive REPL that works online and offline. Typical flow: prompt for
// credentials, start a background connectivity watcher, then run commands.
//
// Key features:
//   - Login / Logout (online with offline fallback)
//   - Drafts: new, edit, attach, place
//   - Scheduling: schedule, resubmit
//   - Browsing: list by time window and lifecycle, show, delete
//   - Sync: confirm publications with the server, automatically on reconnect
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
