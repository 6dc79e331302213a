package main

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// Braille frames render as a single glyph but occupy ~2 terminal columns.
var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinInterval = 80 * time.Millisecond

// spinner animates a message on a TTY while a blocking call runs.
// On a non-TTY it degrades to a single "message..." line.
type spinner struct {
	w       io.Writer
	message string
	stopped atomic.Bool
}

func (s *spinner) start() {
	if !isTTY() {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}
	go func() {
		for i := 0; !s.stopped.Load(); i++ {
			frame := spinFrames[i%len(spinFrames)]
			fmt.Fprintf(s.w, "\r%s %s", infoStyle.Render(frame), s.message)
			time.Sleep(spinInterval)
		}
	}()
}

func (s *spinner) stop() {
	s.stopped.Store(true)
	if isTTY() {
		// Overwrite the frame, the message, and a little slack for wide glyphs.
		fmt.Fprint(s.w, "\r", strings.Repeat(" ", len(s.message)+8), "\r")
	}
}

// runWithSpinner animates message on w until op returns, then clears the line.
func runWithSpinner(w io.Writer, message string, op func() error) error {
	s := &spinner{w: w, message: message}
	s.start()
	defer s.stop()
	return op()
}
