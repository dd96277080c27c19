package conveyor

import (
	"bufio"
	"context"
	"io"
	"iter"
)

// Command characters accepted on the input stream.
const (
	CmdSort      = 'b' // enqueue a sort event
	CmdEStop     = 'd' // enqueue an e-stop event
	CmdHMI       = 'h' // raise the setpoint via the soft HMI path
	CmdQuit      = 'q' // graceful shutdown
	CmdAperiodic = 'a' // submit one synthetic aperiodic job
)

// CommandReader yields one command byte at a time from the input stream,
// skipping whitespace. This is the single stdin path: a blocking read, no
// polling fallback. A read error other than EOF cancels the run.
func CommandReader(reader io.Reader, cancel context.CancelCauseFunc) iter.Seq[byte] {
	return func(yield func(byte) bool) {
		r := bufio.NewReader(reader)
		for {
			c, err := r.ReadByte()
			if err != nil {
				if err != io.EOF && cancel != nil {
					cancel(err)
				}
				return
			}
			switch c {
			case ' ', '\t', '\n', '\r':
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}
