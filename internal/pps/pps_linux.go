//go:build linux

package pps

import (
	"fmt"
	"io"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// openWatcher requests the PPS line with rising-edge events and feeds each
// event timestamp into fn.
func openWatcher(chip string, line int, fn func(time.Time)) (io.Closer, error) {
	if chip == "" {
		chip = "/dev/gpiochip0"
	}
	l, err := gpiocdev.RequestLine(chip, line,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			fn(time.Now())
		}),
		gpiocdev.WithConsumer("orbd-pps"))
	if err != nil {
		return nil, fmt.Errorf("pps: request %s line %d: %w", chip, line, err)
	}
	return l, nil
}

var openWatcherFn = openWatcher
