// Package at implements the request/response half of an AT command link: one
// command out, lines in until a terminator, an error line, or a deadline.
package at

import (
	"strings"
	"time"

	"kagami-orb/internal/transport"
)

// DefaultTimeout bounds a command exchange unless overridden per call.
const DefaultTimeout = time.Second

// Engine serializes command exchanges over one port. It owns no retry or
// reconnect policy; callers decide what a failed exchange means.
type Engine struct {
	port transport.Port
	lr   *transport.LineReader
}

func NewEngine(port transport.Port) *Engine {
	return &Engine{port: port, lr: transport.NewLineReader(port)}
}

// Options tune a single exchange.
type Options struct {
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// WaitFor is the success terminator, "OK" by default. A prompt such as
	// ">" matches as a line prefix since the modem does not end it with CRLF
	// terminators on all firmwares.
	WaitFor string
}

// Exchange writes cmd and collects response lines until the terminator, an
// ERROR/+CME ERROR line, or the deadline. It never returns an error: failure
// is the ok flag, and whatever lines arrived are returned either way.
//
// An empty cmd skips the write and just collects, which is how the SMS body
// confirmation is awaited.
func (e *Engine) Exchange(cmd string, opts Options) (bool, []string) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.WaitFor == "" {
		opts.WaitFor = "OK"
	}

	if cmd != "" {
		if _, err := e.port.Write([]byte(cmd + "\r\n")); err != nil {
			return false, nil
		}
	}

	// Non-default terminators may be bare prompts without CRLF framing.
	prompt := ""
	if opts.WaitFor != "OK" {
		prompt = opts.WaitFor
	}

	deadline := time.Now().Add(opts.Timeout)
	var lines []string
	for {
		line, err := e.lr.ReadLineOrPrompt(deadline, prompt)
		if err != nil {
			return false, lines
		}
		lines = append(lines, line)

		switch {
		case strings.HasPrefix(line, opts.WaitFor):
			return true, lines
		case strings.HasPrefix(line, "ERROR"), strings.HasPrefix(line, "+CME ERROR"):
			return false, lines
		}
	}
}

// ExchangeOK sends cmd and reports whether the default terminator arrived.
func (e *Engine) ExchangeOK(cmd string) bool {
	ok, _ := e.Exchange(cmd, Options{})
	return ok
}

// WriteRaw sends bytes without command framing (SMS body, Ctrl-Z and the
// like).
func (e *Engine) WriteRaw(b []byte) error {
	_, err := e.port.Write(b)
	return err
}
