// Package notification sends a run summary to the configured shoutrrr
// services when a catmaset run finishes.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/knesset-annotations/catmaset/internal/errors"
)

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Command   string
	Err       error // nil for a successful run
	Protocols int   // protocol directories processed
	Skipped   int   // protocol directories without annotations
	Rows      int   // rows in the final table
	Output    string
	Elapsed   time.Duration
}

// Success reports whether the run completed.
func (s *Summary) Success() bool {
	return s.Err == nil
}

// Title returns a one-line notification title.
func (s *Summary) Title() string {
	if s.Success() {
		return fmt.Sprintf("catmaset %s completed", s.Command)
	}
	return fmt.Sprintf("catmaset %s failed", s.Command)
}

// Message returns the notification body.
func (s *Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run: %s\n", s.RunID)
	if s.Success() {
		fmt.Fprintf(&b, "protocols: %d processed, %d without annotation\n", s.Protocols, s.Skipped)
		fmt.Fprintf(&b, "rows: %d\n", s.Rows)
		if s.Output != "" {
			fmt.Fprintf(&b, "output: %s\n", s.Output)
		}
	} else {
		fmt.Fprintf(&b, "error (%s): %v\n", errors.CategoryOf(s.Err), s.Err)
	}
	fmt.Fprintf(&b, "elapsed: %s", s.Elapsed.Round(time.Millisecond))
	return b.String()
}
