package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Options tunes a sweep. The zero value selects the defaults the
// original deployment has been running with.
type Options struct {
	// Workers is the archival pool width. Default 3 — deliberately
	// small to respect server-side rate limits.
	Workers int

	// MaxRetries is the per-message retry budget after the initial
	// attempt. Default 3.
	MaxRetries int

	// Backoff is the base unit for the 2^i inter-attempt delays.
	// Default 1s.
	Backoff time.Duration

	// BatchSize slices the secondary mark-read mutation. Default 25.
	BatchSize int

	// AllMail forces a fixed archive mailbox name instead of
	// discovering it from the server listing.
	AllMail string
}

func (o *Options) applyDefaults() {
	if o.Workers < 1 {
		o.Workers = 3
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.Backoff == 0 {
		o.Backoff = time.Second
	}
	if o.BatchSize < 1 {
		o.BatchSize = 25
	}
}

// Report describes one completed (or aborted) sweep.
type Report struct {
	// SweepID identifies this run in logs and the journal.
	SweepID string

	// Label is the classification label that was swept.
	Label string

	// ArchiveBox is the archive mailbox the sweep resolved.
	ArchiveBox string

	// Candidates is the size of the initial candidate set.
	Candidates int

	Summary

	Started  time.Time
	Finished time.Time
}

// Sweeper drives a full archival sweep: candidate selection, the
// concurrent archival pool, and the secondary read-consistency pass.
type Sweeper struct {
	provider Provider
	opts     Options
	onResult func(Outcome)
	logger   *slog.Logger
}

// NewSweeper builds a sweeper. onResult, when non-nil, receives every
// per-message outcome in completion order.
func NewSweeper(provider Provider, opts Options, onResult func(Outcome), logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	return &Sweeper{
		provider: provider,
		opts:     opts,
		onResult: onResult,
		logger:   logger,
	}
}

// Run sweeps every inbox message carrying label out of the inbox
// view. Per-message failures are contained and counted; only
// sweep-level setup failures (session, inbox selection, candidate
// query) return an error, and even then the partial report is valid.
func (s *Sweeper) Run(ctx context.Context, label string) (*Report, error) {
	rep := &Report{
		SweepID: uuid.NewString(),
		Label:   label,
		Started: time.Now(),
	}
	defer func() { rep.Finished = time.Now() }()

	logger := s.logger.With("sweep_id", rep.SweepID, "label", label)

	sess, err := s.provider.Open(ctx)
	if err != nil {
		return rep, fmt.Errorf("open sweep session: %w", err)
	}
	defer sess.Close()

	rep.ArchiveBox = s.resolveArchive(ctx, sess, logger)

	// Candidate set: combined label+inbox query in the inbox view's
	// UID space. Failure here is terminal for the sweep.
	if err := sess.Select(ctx, MailboxInbox); err != nil {
		return rep, fmt.Errorf("select inbox: %w", err)
	}
	candidates, err := sess.SearchLabel(ctx, LabelQuery{Label: label, InboxOnly: true})
	if err != nil {
		return rep, fmt.Errorf("candidate query: %w", err)
	}
	rep.Candidates = len(candidates)
	if len(candidates) == 0 {
		logger.Info("no inbox messages carry the label, nothing to do")
		return rep, nil
	}
	logger.Info("sweep starting",
		"candidates", len(candidates),
		"archive_box", rep.ArchiveBox,
		"workers", s.opts.Workers,
	)

	archiver := NewArchiver(s.provider, rep.ArchiveBox, s.opts.MaxRetries, s.opts.Backoff, logger)
	coord := NewCoordinator(s.opts.Workers, s.onResult, logger)
	rep.Summary = coord.Run(ctx, archiver, candidates)

	// Secondary consistency pass: anything still unread with the
	// label, account-wide, gets the read flag. Unconditional and
	// best-effort — it is cleanup, not a second archival pass.
	marked, err := s.markLabeledRead(ctx, sess, rep.ArchiveBox, label)
	if err != nil {
		logger.Warn("secondary read pass failed", "error", err)
	}
	rep.MarkedRead = marked

	logger.Info("sweep finished",
		"attempted", rep.Attempted,
		"archived", rep.Archived,
		"failed", rep.Failed,
		"marked_read", rep.MarkedRead,
	)
	return rep, nil
}

// resolveArchive picks the archive mailbox, preferring the
// configured override, then server discovery, then the default.
func (s *Sweeper) resolveArchive(ctx context.Context, sess Session, logger *slog.Logger) string {
	if s.opts.AllMail != "" {
		return s.opts.AllMail
	}
	boxes, err := sess.Mailboxes(ctx)
	if err != nil {
		logger.Warn("mailbox listing failed, assuming default archive folder",
			"fallback", DefaultAllMail,
			"error", err,
		)
		return DefaultAllMail
	}
	return ResolveAllMail(boxes)
}

// markLabeledRead searches the archive (account-wide) view for
// unread messages carrying the label and marks them read in batches.
// Returns how many messages were marked.
func (s *Sweeper) markLabeledRead(ctx context.Context, sess Session, archiveBox, label string) (int, error) {
	if err := sess.Select(ctx, archiveBox); err != nil {
		return 0, fmt.Errorf("select %s: %w", archiveBox, err)
	}
	uids, err := sess.SearchLabel(ctx, LabelQuery{Label: label, UnreadOnly: true})
	if err != nil {
		return 0, fmt.Errorf("unread query: %w", err)
	}

	marked := 0
	for start := 0; start < len(uids); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(uids))
		if err := sess.MarkRead(ctx, uids[start:end]...); err != nil {
			return marked, fmt.Errorf("mark read batch: %w", err)
		}
		marked = end
	}
	return marked, nil
}
