package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	imap "github.com/BrianLeishman/go-imap"
	"golang.org/x/time/rate"

	"github.com/labelsweep/labelsweep/internal/archive"
)

// execRetries is passed straight through to the dialer, which replays
// a command on a reconnected socket that many times before giving up.
const execRetries = 2

// Session is one authenticated IMAP connection. Methods are not safe
// for concurrent use; the archive engine opens a session per worker
// attempt, so nothing here needs a lock.
type Session struct {
	dl      *imap.Dialer
	limiter *rate.Limiter
	logger  *slog.Logger

	// folder is the currently selected mailbox, cached so repeated
	// Select calls within one attempt skip the round trip.
	folder string
}

func (s *Session) pace(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// Select makes mailbox the current folder. A no-op when it already is.
func (s *Session) Select(ctx context.Context, mailbox string) error {
	if s.folder == mailbox {
		return nil
	}
	if err := s.pace(ctx); err != nil {
		return err
	}
	if err := s.dl.SelectFolder(mailbox); err != nil {
		return fmt.Errorf("select %q: %w", mailbox, err)
	}
	s.folder = mailbox
	return nil
}

// Mailboxes lists every mailbox with its attributes, including the
// special-use markers Gmail sets on [Gmail]/All Mail and friends.
func (s *Session) Mailboxes(ctx context.Context) ([]archive.Mailbox, error) {
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	resp, err := s.dl.Exec(`LIST "" "*"`, true, execRetries, nil)
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}
	var boxes []archive.Mailbox
	for _, line := range strings.Split(resp, "\n") {
		if box, ok := parseListLine(strings.TrimRight(line, "\r")); ok {
			boxes = append(boxes, box)
		}
	}
	return boxes, nil
}

// SearchLabel finds messages by label through Gmail's own search
// engine, scoped by the query's inbox/unread constraints. The result
// UIDs belong to the currently selected mailbox.
func (s *Session) SearchLabel(ctx context.Context, q archive.LabelQuery) ([]archive.UID, error) {
	parts := make([]string, 0, 3)
	if q.Label != "" {
		parts = append(parts, "label:"+searchLabel(q.Label))
	}
	if q.InboxOnly {
		parts = append(parts, "in:inbox")
	}
	if q.UnreadOnly {
		parts = append(parts, "is:unread")
	}
	return s.rawSearch(ctx, strings.Join(parts, " "))
}

// SearchMessageID resolves a stable identifier to UIDs in the selected
// mailbox's space.
func (s *Session) SearchMessageID(ctx context.Context, messageID string, inboxOnly bool) ([]archive.UID, error) {
	query := "rfc822msgid:" + messageID
	if inboxOnly {
		query += " in:inbox"
	}
	return s.rawSearch(ctx, query)
}

// SearchAll runs an arbitrary Gmail search query in the selected
// mailbox.
func (s *Session) SearchAll(ctx context.Context, query string) ([]archive.UID, error) {
	return s.rawSearch(ctx, query)
}

func (s *Session) rawSearch(ctx context.Context, query string) ([]archive.UID, error) {
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	ids, err := s.dl.GetUIDs(fmt.Sprintf("X-GM-RAW %q", query))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	uids := make([]archive.UID, 0, len(ids))
	for _, id := range ids {
		uids = append(uids, archive.UID(id))
	}
	return uids, nil
}

// MessageID fetches the stable identifier header for the message at
// uid in the selected mailbox. Wraps the engine's sentinel when the
// header cannot be obtained, so callers can classify the failure.
func (s *Session) MessageID(ctx context.Context, uid archive.UID) (string, error) {
	if err := s.pace(ctx); err != nil {
		return "", err
	}
	cmd := fmt.Sprintf("UID FETCH %d (BODY.PEEK[HEADER.FIELDS (MESSAGE-ID)])", uid)
	resp, err := s.dl.Exec(cmd, true, execRetries, nil)
	if err != nil {
		return "", fmt.Errorf("fetch message-id for uid %d: %w", uid, err)
	}
	msgid, ok := parseMessageID(resp)
	if !ok {
		return "", fmt.Errorf("uid %d: %w", uid, archive.ErrNoSuchMessage)
	}
	return msgid, nil
}

// RemoveInboxLabel strips \Inbox from the message at uid. In Gmail's
// model this is archival: the message leaves the inbox but keeps every
// other label.
func (s *Session) RemoveInboxLabel(ctx context.Context, uid archive.UID) error {
	if err := s.pace(ctx); err != nil {
		return err
	}
	cmd := fmt.Sprintf(`UID STORE %d -X-GM-LABELS (\Inbox)`, uid)
	if _, err := s.dl.Exec(cmd, false, execRetries, nil); err != nil {
		return fmt.Errorf("remove inbox label from uid %d: %w", uid, err)
	}
	return nil
}

// MarkRead sets \Seen on the given messages in one store command.
func (s *Session) MarkRead(ctx context.Context, uids ...archive.UID) error {
	if len(uids) == 0 {
		return nil
	}
	if err := s.pace(ctx); err != nil {
		return err
	}
	cmd := fmt.Sprintf(`UID STORE %s +FLAGS (\Seen)`, joinUIDs(uids))
	if _, err := s.dl.Exec(cmd, false, execRetries, nil); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Move relocates the message at uid into dest.
func (s *Session) Move(ctx context.Context, uid archive.UID, dest string) error {
	if err := s.pace(ctx); err != nil {
		return err
	}
	if err := s.dl.MoveEmail(int(uid), dest); err != nil {
		return fmt.Errorf("move uid %d to %q: %w", uid, dest, err)
	}
	return nil
}

// Labels fetches the full Gmail label set of the message at uid.
func (s *Session) Labels(ctx context.Context, uid archive.UID) ([]string, error) {
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	cmd := fmt.Sprintf("UID FETCH %d (X-GM-LABELS)", uid)
	resp, err := s.dl.Exec(cmd, true, execRetries, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch labels for uid %d: %w", uid, err)
	}
	return parseLabels(resp), nil
}

// FromAddresses returns the sender address of each given message,
// lowercased, keyed by UID. Messages the server no longer knows are
// simply absent from the map.
func (s *Session) FromAddresses(ctx context.Context, uids []archive.UID) (map[archive.UID]string, error) {
	if len(uids) == 0 {
		return map[archive.UID]string{}, nil
	}
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	ids := make([]int, len(uids))
	for i, uid := range uids {
		ids[i] = int(uid)
	}
	emails, err := s.dl.GetOverviews(ids...)
	if err != nil {
		return nil, fmt.Errorf("fetch overviews: %w", err)
	}
	froms := make(map[archive.UID]string, len(emails))
	for id, email := range emails {
		if email == nil {
			continue
		}
		for addr := range email.From {
			froms[archive.UID(id)] = strings.ToLower(addr)
			break
		}
	}
	return froms, nil
}

// Delete flags the given messages for removal. The flags take effect
// on Expunge.
func (s *Session) Delete(ctx context.Context, uids ...archive.UID) error {
	if len(uids) == 0 {
		return nil
	}
	if err := s.pace(ctx); err != nil {
		return err
	}
	cmd := fmt.Sprintf(`UID STORE %s +FLAGS (\Deleted)`, joinUIDs(uids))
	if _, err := s.dl.Exec(cmd, false, execRetries, nil); err != nil {
		return fmt.Errorf("flag deleted: %w", err)
	}
	return nil
}

// Expunge permanently removes every \Deleted message in the selected
// mailbox.
func (s *Session) Expunge(ctx context.Context) error {
	if err := s.pace(ctx); err != nil {
		return err
	}
	if _, err := s.dl.Exec("EXPUNGE", false, execRetries, nil); err != nil {
		return fmt.Errorf("expunge: %w", err)
	}
	return nil
}

// Close tears down the connection. Logout failures are only logged;
// at that point there is nothing left to salvage.
func (s *Session) Close() {
	if err := s.dl.Close(); err != nil {
		s.logger.Debug("imap session close", "error", err)
	}
}
