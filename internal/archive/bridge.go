package archive

import (
	"context"
	"errors"
	"fmt"
)

// Resolution ties the three identifier spaces of one message
// together: its inbox-view UID, its stable Message-ID, and its
// archive-view UID.
type Resolution struct {
	InboxUID   UID
	MessageID  string
	ArchiveUID UID
}

// resolve bridges an inbox-view UID into the archive view. The
// session must have the inbox selected on entry; on success the
// archive mailbox is left selected for the mutation step.
func (a *Archiver) resolve(ctx context.Context, sess Session, uid UID) (Resolution, error) {
	// Step 1: stable identifier from the inbox view. Header only.
	msgid, err := sess.MessageID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNoSuchMessage) {
			// The candidate vanished between the query and now —
			// moved or deleted by another client.
			return Resolution{}, fmt.Errorf("uid %d: %w", uid, ErrHeaderUnavailable)
		}
		return Resolution{}, fmt.Errorf("fetch stable identifier for uid %d: %w", uid, err)
	}

	// Step 2: locate the same message in the archive view's UID space.
	if err := sess.Select(ctx, a.archiveBox); err != nil {
		return Resolution{}, fmt.Errorf("select archive %s: %w", a.archiveBox, err)
	}
	uids, err := sess.SearchMessageID(ctx, msgid, false)
	if err != nil {
		return Resolution{}, fmt.Errorf("search archive for %s: %w", msgid, err)
	}
	if len(uids) == 0 {
		return Resolution{}, fmt.Errorf("message-id %s: %w", msgid, ErrNotFoundInArchive)
	}

	// Duplicate stable identifiers are possible but rare; take the
	// first in server order, no content disambiguation.
	return Resolution{InboxUID: uid, MessageID: msgid, ArchiveUID: uids[0]}, nil
}
