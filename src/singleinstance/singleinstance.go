// Package singleinstance lets one resident process own the hotkeys while
// later invocations delegate start and stop requests to it over loopback TCP.
package singleinstance

import (
	"context"
	"strings"
)

type Command string

const (
	CommandStart Command = "START"
	CommandStop  Command = "STOP"
)

// Request is one delegated command. Region optionally carries the start
// region as "x1,x2,y1,y2".
type Request struct {
	Command Command
	Region  string
}

func (r Request) line() string {
	if r.Region == "" {
		return string(r.Command) + "\n"
	}
	return string(r.Command) + " " + r.Region + "\n"
}

func parseRequest(line string) (Request, bool) {
	line = strings.TrimRight(line, "\r\n")
	cmd, region, _ := strings.Cut(line, " ")
	switch Command(cmd) {
	case CommandStart, CommandStop:
		return Request{Command: Command(cmd), Region: strings.TrimSpace(region)}, true
	}
	return Request{}, false
}

// Server owns the TCP endpoint and answers delegated requests.
type Server interface {
	// Start binds the configured port; failure means another resident owns it.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message, e.g. "busy".
	RespondError(msg string) error
	Close() error
}

// Client delegates commands to a resident server.
type Client interface {
	// Send delivers req to a resident. If none answers PING, it returns
	// delegated=false and a nil error.
	Send(ctx context.Context, req Request) (delegated bool, reply string, err error)
	// Detect reports whether a resident answers PING.
	Detect(ctx context.Context) bool
}

// TryStart asks a resident to start its loop.
func TryStart(ctx context.Context, c Client, region string) (bool, error) {
	delegated, _, err := c.Send(ctx, Request{Command: CommandStart, Region: region})
	return delegated, err
}

// NewServer returns TCP implementation.
func NewServer(port int) Server { return newTcpServer(port) }

// NewClient returns TCP implementation.
func NewClient(port int) Client { return newTcpClient(port) }
