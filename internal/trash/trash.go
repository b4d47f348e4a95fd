// Package trash empties the Gmail trash mailbox, once or on a cycle.
// Gmail keeps trashed messages for 30 days; emptying it by hand is
// about reclaiming quota sooner.
package trash

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/labelsweep/labelsweep/internal/archive"
)

// DefaultTrash is the English Gmail trash mailbox, used when neither
// the special-use attribute nor a known localized name shows up.
const DefaultTrash = "[Gmail]/Trash"

const attrTrash = `\Trash`

var trashNames = []string{"Trash", "Corbeille", "Papelera"}

// ResolveTrash locates the trash mailbox in a listing. Resolution
// mirrors the archive mailbox lookup: special-use attribute first,
// then known localized names, then the default.
func ResolveTrash(boxes []archive.Mailbox) string {
	for _, box := range boxes {
		for _, attr := range box.Attrs {
			if strings.EqualFold(attr, attrTrash) {
				return box.Name
			}
		}
	}
	for _, box := range boxes {
		for _, name := range trashNames {
			if strings.Contains(box.Name, name) {
				return box.Name
			}
		}
	}
	return DefaultTrash
}

// Session is the slice of the IMAP surface this package needs.
type Session interface {
	Select(ctx context.Context, mailbox string) error
	Mailboxes(ctx context.Context) ([]archive.Mailbox, error)
	SearchAll(ctx context.Context, query string) ([]archive.UID, error)
	Delete(ctx context.Context, uids ...archive.UID) error
	Expunge(ctx context.Context) error
	Close()
}

// Opener dials a fresh session. Each cleaning cycle gets its own so a
// dropped connection never poisons the next cycle.
type Opener func(ctx context.Context) (Session, error)

// Cleaner empties the trash in bounded batches.
type Cleaner struct {
	open      Opener
	batchSize int
	logger    *slog.Logger
}

func NewCleaner(open Opener, batchSize int, logger *slog.Logger) *Cleaner {
	if batchSize < 1 {
		batchSize = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{open: open, batchSize: batchSize, logger: logger}
}

// CleanOnce deletes and expunges everything currently in the trash,
// batch by batch, and returns how many messages it removed. A failing
// batch ends the cycle; whatever was already expunged stays gone.
func (c *Cleaner) CleanOnce(ctx context.Context) (int, error) {
	sess, err := c.open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open trash session: %w", err)
	}
	defer sess.Close()

	boxes, err := sess.Mailboxes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mailboxes: %w", err)
	}
	box := ResolveTrash(boxes)
	if err := sess.Select(ctx, box); err != nil {
		return 0, err
	}

	uids, err := sess.SearchAll(ctx, "in:trash")
	if err != nil {
		return 0, fmt.Errorf("list trash: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}

	removed := 0
	for start := 0; start < len(uids); start += c.batchSize {
		end := min(start+c.batchSize, len(uids))
		batch := uids[start:end]
		if err := sess.Delete(ctx, batch...); err != nil {
			return removed, fmt.Errorf("flag batch: %w", err)
		}
		if err := sess.Expunge(ctx); err != nil {
			return removed, fmt.Errorf("expunge batch: %w", err)
		}
		removed += len(batch)
		c.logger.Debug("trash batch expunged", "mailbox", box, "removed", removed, "total", len(uids))
	}
	return removed, nil
}

// Watch runs CleanOnce every interval until ctx is done. Cycle errors
// are logged and the next cycle still runs; transient IMAP trouble
// should not kill a long-running watcher.
func (c *Cleaner) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		removed, err := c.CleanOnce(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			c.logger.Warn("trash cycle failed", "error", err)
		case removed > 0:
			c.logger.Info("trash emptied", "removed", removed)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
