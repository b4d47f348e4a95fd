// Package report renders sweep progress and final summaries for the
// terminal.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/labelsweep/labelsweep/internal/archive"
)

// Reporter writes per-message progress lines and the closing summary.
// Done may be called from the sweep's collector goroutine while the
// caller owns Summary, so writes are serialized.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// New returns a reporter writing to w. With verbose set, successful
// messages get a line each; otherwise only failures and the summary
// are printed.
func New(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose}
}

// Done reports one completed message.
func (r *Reporter) Done(out archive.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !out.Archived:
		fmt.Fprintf(r.w, "uid %d: FAILED after %d attempts: %v\n", out.UID, out.Attempts, out.Err)
	case out.Fallback:
		fmt.Fprintf(r.w, "uid %d: archived (moved directly, label removal did not stick)\n", out.UID)
	case r.verbose:
		fmt.Fprintf(r.w, "uid %d: archived\n", out.UID)
	}
}

// Summary prints the closing totals for a sweep.
func (r *Reporter) Summary(rep *archive.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "\nSweep %s (label %q -> %s)\n", rep.SweepID, rep.Label, rep.ArchiveBox)
	fmt.Fprintf(r.w, "  candidates: %d\n", rep.Candidates)
	fmt.Fprintf(r.w, "  archived:   %d\n", rep.Archived)
	fmt.Fprintf(r.w, "  failed:     %d\n", rep.Failed)
	fmt.Fprintf(r.w, "  marked read: %d\n", rep.MarkedRead)
	fmt.Fprintf(r.w, "  took: %s\n", rep.Finished.Sub(rep.Started).Round(10*time.Millisecond))
}
