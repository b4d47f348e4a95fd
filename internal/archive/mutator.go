package archive

import (
	"context"
	"fmt"
)

// mutate removes the message from the inbox view. The canonical path
// removes the inbox-presence label at the archive UID, which keeps
// every other label intact and is safe to repeat. A verification
// probe then checks the inbox view; if the message is still visible
// there, the fallback relocates the inbox UID directly into the
// archive folder.
//
// The session must have the archive mailbox selected on entry (as
// left by resolve).
func (a *Archiver) mutate(ctx context.Context, sess Session, res Resolution) (fallback bool, err error) {
	// Canonical mutation: drop the inbox-presence label.
	if err := a.removeFromInbox(ctx, sess, res.ArchiveUID); err != nil {
		return false, err
	}

	// Verify by stable identifier, not by repeating the candidate
	// query: another message carrying the same label must not be able
	// to masquerade as this one.
	inInbox, err := a.stillInInbox(ctx, sess, res.MessageID)
	if err != nil {
		return false, err
	}
	if !inInbox {
		return false, nil
	}

	// Fallback: some providers treat inbox-folder placement and the
	// global archive view as subtly different physical locations, and
	// the label removal alone does not always update the inbox view
	// promptly. Relocate the original inbox UID directly.
	a.logger.Debug("inbox still lists message after label removal, moving directly",
		"uid", res.InboxUID,
		"message_id", res.MessageID,
	)
	if err := sess.Move(ctx, res.InboxUID, a.archiveBox); err != nil {
		return false, fmt.Errorf("fallback move uid %d: %w", res.InboxUID, err)
	}

	// Mark read at the archive UID after the move, best-effort.
	if err := sess.Select(ctx, a.archiveBox); err == nil {
		if err := sess.MarkRead(ctx, res.ArchiveUID); err != nil {
			a.logger.Debug("mark read after move failed", "uid", res.ArchiveUID, "error", err)
		}
	}
	return true, nil
}

// removeFromInbox applies the canonical label removal plus the
// best-effort read flag at the archive UID.
func (a *Archiver) removeFromInbox(ctx context.Context, sess Session, archiveUID UID) error {
	if err := sess.RemoveInboxLabel(ctx, archiveUID); err != nil {
		return fmt.Errorf("remove inbox label from uid %d: %w", archiveUID, err)
	}

	// Read flag is cosmetic; its failure must not fail the attempt.
	if err := sess.MarkRead(ctx, archiveUID); err != nil {
		a.logger.Debug("mark read failed", "uid", archiveUID, "error", err)
	}
	return nil
}

// stillInInbox probes the inbox view for the stable identifier. The
// inbox is left selected afterwards so the fallback move can operate
// on the inbox-view UID.
func (a *Archiver) stillInInbox(ctx context.Context, sess Session, messageID string) (bool, error) {
	if err := sess.Select(ctx, MailboxInbox); err != nil {
		return false, fmt.Errorf("select inbox for verification: %w", err)
	}
	uids, err := sess.SearchMessageID(ctx, messageID, true)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", messageID, err)
	}
	return len(uids) > 0, nil
}
