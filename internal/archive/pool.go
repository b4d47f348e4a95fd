package archive

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Coordinator fans archival work out across a fixed-size worker pool
// and folds completed outcomes into a Summary. Outcomes are consumed
// in completion order on a single goroutine, so no counter is ever
// mutated from two workers.
type Coordinator struct {
	workers  int
	onResult func(Outcome)
	logger   *slog.Logger
}

// NewCoordinator builds a coordinator with the given pool width.
// onResult, when non-nil, receives every outcome as it completes;
// archival correctness does not depend on it.
func NewCoordinator(workers int, onResult func(Outcome), logger *slog.Logger) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{workers: workers, onResult: onResult, logger: logger}
}

// Run archives every candidate UID through the archiver and returns
// the aggregate counts. An individual failure never stops the pool;
// the only ways out are all work completing or ctx cancellation,
// which stops submission of new work while in-flight attempts finish.
func (c *Coordinator) Run(ctx context.Context, a *Archiver, candidates []UID) Summary {
	results := make(chan Outcome)

	var summary Summary
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for out := range results {
			summary.Attempted++
			if out.Archived {
				summary.Archived++
			} else {
				summary.Failed++
				c.logger.Warn("message not archived",
					"uid", out.UID,
					"attempts", out.Attempts,
					"error", out.Err,
				)
			}
			if c.onResult != nil {
				c.onResult(out)
			}
		}
	}()

	grp := &errgroup.Group{}
	grp.SetLimit(c.workers)
	submitted := 0
	for _, uid := range candidates {
		if ctx.Err() != nil {
			c.logger.Info("interrupted, not submitting remaining candidates",
				"remaining", len(candidates)-submitted,
			)
			break
		}
		submitted++
		uid := uid
		grp.Go(func() error {
			results <- c.runOne(ctx, a, uid)
			return nil
		})
	}

	_ = grp.Wait()
	close(results)
	<-collected
	return summary
}

// runOne is the worker fault boundary: a panicking attempt is
// converted into a failed outcome so one message cannot take down
// the pool or lose accounting for its siblings.
func (c *Coordinator) runOne(ctx context.Context, a *Archiver, uid UID) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("archival worker panicked", "uid", uid, "panic", r)
			out = Outcome{UID: uid, Err: fmt.Errorf("worker panic: %v", r)}
		}
	}()
	return a.ArchiveOne(ctx, uid)
}
