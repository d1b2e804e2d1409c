package transport

import (
	"io"
	"strings"
	"time"

	"kagami-orb/internal/hal"
)

// pollInterval paces retries when a bounded read returns no data.
var pollInterval = 5 * time.Millisecond

// LineReader assembles CR/LF-terminated lines from a Port whose Read may
// legally return (0, nil) when the hardware timeout expires with no data.
type LineReader struct {
	r   io.Reader
	buf []byte
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r}
}

// ReadLine returns the next non-empty line with terminators stripped.
// It gives up at deadline with hal.ErrTimeout; other read errors pass
// through wrapped in hal.ErrCommunication.
func (l *LineReader) ReadLine(deadline time.Time) (string, error) {
	return l.readLine(deadline, "")
}

// ReadLineOrPrompt is ReadLine, except an unterminated prompt (e.g. the "> "
// an AT modem emits before an SMS body, with no trailing newline) is returned
// as soon as the buffer starts with it.
func (l *LineReader) ReadLineOrPrompt(deadline time.Time, prompt string) (string, error) {
	return l.readLine(deadline, prompt)
}

func (l *LineReader) readLine(deadline time.Time, prompt string) (string, error) {
	for {
		if line, ok := l.popLine(); ok {
			return line, nil
		}
		if prompt != "" {
			if rest := strings.TrimLeft(string(l.buf), "\r\n \t"); strings.HasPrefix(rest, prompt) {
				l.buf = nil
				return prompt, nil
			}
		}
		if !time.Now().Before(deadline) {
			return "", hal.ErrTimeout
		}

		tmp := make([]byte, 256)
		n, err := l.r.Read(tmp)
		if n > 0 {
			l.buf = append(l.buf, tmp[:n]...)
			continue
		}
		if err != nil {
			if err == io.EOF {
				return "", hal.ErrTimeout
			}
			return "", hal.ErrCommunication
		}
		time.Sleep(pollInterval)
	}
}

// popLine extracts the first complete line from the buffer, skipping blanks.
func (l *LineReader) popLine() (string, bool) {
	for {
		idx := -1
		for i, b := range l.buf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx == -1 {
			return "", false
		}
		line := strings.Trim(string(l.buf[:idx]), "\r\n \t")
		l.buf = l.buf[idx+1:]
		if line != "" {
			return line, true
		}
	}
}
