// Package logging configures slog for perfshop.
//
// Interactive commands log to stderr. The MCP stdio server and the live TUI
// own the terminal, so they log only to a rotating file under
// ~/.perfshop/logs/. --debug raises the level to debug and always enables
// the file.
package logging
