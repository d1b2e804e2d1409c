//go:build !linux

package pps

import (
	"fmt"
	"io"
	"time"
)

func openWatcher(chip string, line int, fn func(time.Time)) (io.Closer, error) {
	return nil, fmt.Errorf("pps: gpio events not supported on this platform")
}

var openWatcherFn = openWatcher
