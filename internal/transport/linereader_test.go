package transport

import (
	"errors"
	"io"
	"testing"
	"time"

	"kagami-orb/internal/hal"
)

// chunkReader returns queued chunks one Read at a time, then (0, nil) forever
// to mimic a serial port with an inter-character timeout.
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, c.chunks[0])
	if n == len(c.chunks[0]) {
		c.chunks = c.chunks[1:]
	} else {
		c.chunks[0] = c.chunks[0][n:]
	}
	return n, nil
}

func TestLineReaderAssemblesSplitLines(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{
		[]byte("$GPGGA,12"),
		[]byte("3519*00\r\n$GPR"),
		[]byte("MC,ok\r\n"),
	}}
	lr := NewLineReader(r)
	deadline := time.Now().Add(time.Second)

	line, err := lr.ReadLine(deadline)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "$GPGGA,123519*00" {
		t.Fatalf("line=%q", line)
	}
	line, err = lr.ReadLine(deadline)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "$GPRMC,ok" {
		t.Fatalf("line=%q", line)
	}
}

func TestLineReaderSkipsBlankLines(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{[]byte("\r\n\r\nOK\r\n")}}
	lr := NewLineReader(r)
	line, err := lr.ReadLine(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "OK" {
		t.Fatalf("line=%q", line)
	}
}

func TestLineReaderDeadline(t *testing.T) {
	lr := NewLineReader(&chunkReader{})
	_, err := lr.ReadLine(time.Now().Add(20 * time.Millisecond))
	if !errors.Is(err, hal.ErrTimeout) {
		t.Fatalf("err=%v want hal.ErrTimeout", err)
	}
}

func TestLineReaderEOFIsTimeout(t *testing.T) {
	// A drained sim port reports EOF; callers treat that like no data.
	lr := NewLineReader(eofReader{})
	_, err := lr.ReadLine(time.Now().Add(time.Second))
	if !errors.Is(err, hal.ErrTimeout) {
		t.Fatalf("err=%v want hal.ErrTimeout", err)
	}
}

type eofReader struct{}

func (eofReader) Read(p []byte) (int, error) { return 0, io.EOF }
