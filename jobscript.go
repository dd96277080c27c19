package conveyor

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"iter"
	"strings"
)

// JobSpec is one line of a job script: an action name and its argument in
// milliseconds.
type JobSpec struct {
	Action string `json:"action"`
	Ms     int    `json:"ms"`
}

// JobScriptGenerator interprets the input as JSON objects, one per line,
// yielding job specs until the input runs out or the context is cancelled.
// A malformed line cancels the run; whoever wrote the script wants to know.
func JobScriptGenerator(ctx context.Context, cancel context.CancelCauseFunc, in io.Reader) iter.Seq[JobSpec] {
	return func(yield func(JobSpec) bool) {
		r := bufio.NewReader(in)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			text, err := r.ReadString('\n')
			text = strings.TrimSpace(text)
			if err != nil && err != io.EOF {
				if cancel != nil {
					cancel(err)
				}
				return
			}
			if len(text) > 0 {
				var spec JobSpec
				if jerr := json.Unmarshal([]byte(text), &spec); jerr != nil {
					if cancel != nil {
						cancel(jerr)
					}
					return
				}
				if !yield(spec) {
					return
				}
			}
			if err == io.EOF {
				return
			}
		}
	}
}
