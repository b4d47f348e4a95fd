package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Archiver performs one message's end-to-end archival: resolve the
// identifier bridge, apply the mutation, verify, fall back — wrapped
// in a bounded retry loop with exponential backoff. Every attempt
// runs on its own freshly opened session.
type Archiver struct {
	provider   Provider
	archiveBox string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger

	// sleep is replaced in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewArchiver builds an archiver targeting the given archive mailbox.
// maxRetries is the number of retries after the initial attempt;
// backoff is the base unit for the 2^i inter-attempt delays.
func NewArchiver(provider Provider, archiveBox string, maxRetries int, backoff time.Duration, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		provider:   provider,
		archiveBox: archiveBox,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// ArchiveOne archives the message at the given inbox-view UID. The
// returned Outcome always accounts for the message exactly once:
// either archived, or failed with the last error after the retry
// budget is exhausted. Errors never escape this boundary.
func (a *Archiver) ArchiveOne(ctx context.Context, uid UID) Outcome {
	out := Outcome{UID: uid}
	var lastErr error

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1, 2, 4, ... base units. Rides out
			// archive-index lag and rate throttling. Never sleeps
			// after the final attempt.
			delay := a.backoff * (1 << (attempt - 1))
			if err := a.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		out.Attempts++
		fallback, err := a.attempt(ctx, uid)
		if err == nil {
			out.Archived = true
			out.Fallback = fallback
			return out
		}

		lastErr = err
		a.logger.Debug("archive attempt failed",
			"uid", uid,
			"attempt", out.Attempts,
			"error", err,
		)
		if terminal(err) {
			break
		}
	}

	out.Err = lastErr
	return out
}

// attempt runs one complete archival attempt on an isolated session.
// The session is always closed before returning.
func (a *Archiver) attempt(ctx context.Context, uid UID) (fallback bool, err error) {
	sess, err := a.provider.Open(ctx)
	if err != nil {
		return false, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	if err := sess.Select(ctx, MailboxInbox); err != nil {
		return false, fmt.Errorf("select inbox: %w", err)
	}

	res, err := a.resolve(ctx, sess, uid)
	if err != nil {
		return false, err
	}

	return a.mutate(ctx, sess, res)
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
