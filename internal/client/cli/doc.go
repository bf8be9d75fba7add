// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL.
// Typical flow: register or log in, check who the session belongs to, log
// out. A background watcher pings the server and flips the prompt between
// online and offline.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
