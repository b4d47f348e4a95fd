// Package archive implements the label-based archival engine: it
// removes messages carrying a target label from the inbox view while
// preserving the label itself.
//
// The engine has to reconcile two identifier spaces for the same
// logical message. A UID is mailbox-local: the same message has one
// UID in the inbox view and a different one in the all-mail archive
// view. The Message-ID header is the stable identifier that bridges
// the two. Per message the engine resolves inbox UID → Message-ID →
// archive UID, drops the inbox-presence label at the archive UID,
// verifies the inbox no longer sees the message, and falls back to a
// direct UID move when it still does.
//
// All provider wire syntax lives behind the Session interface; the
// engine never inspects IMAP strings.
package archive

import (
	"context"
	"errors"
)

// UID is a mailbox-local message identifier. It is only meaningful
// within the mailbox that was selected when it was obtained, and is
// not stable across sessions or folders.
type UID uint32

// MailboxInbox is the provider's primary inbox view.
const MailboxInbox = "INBOX"

// Mailbox describes one folder from the server's listing.
type Mailbox struct {
	// Name is the full mailbox name, e.g. "[Gmail]/All Mail".
	Name string

	// Attrs holds the provider-reported attribute flags, e.g. `\All`.
	Attrs []string
}

// LabelQuery is a combined tag+location candidate query, evaluated
// server-side in the UID space of the selected mailbox.
type LabelQuery struct {
	// Label is the classification label to match.
	Label string

	// InboxOnly restricts matches to messages still in the inbox view.
	InboxOnly bool

	// UnreadOnly restricts matches to messages without the read flag.
	UnreadOnly bool
}

// Sentinel errors for the per-message error taxonomy. Session
// implementations return ErrNoSuchMessage; the engine classifies the
// rest.
var (
	// ErrNoSuchMessage is returned by Session implementations when a
	// UID no longer resolves in the selected mailbox or the requested
	// header is absent or malformed.
	ErrNoSuchMessage = errors.New("message does not resolve in selected mailbox")

	// ErrHeaderUnavailable means the stable identifier could not be
	// read in the inbox view: the message was moved or deleted by a
	// concurrent actor between the candidate query and this attempt.
	ErrHeaderUnavailable = errors.New("stable identifier header unavailable in inbox view")

	// ErrNotFoundInArchive means the archive view has not indexed the
	// message yet. Transient: the archive search index may lag the
	// mutation index, so the caller retries with backoff.
	ErrNotFoundInArchive = errors.New("message not found in archive view")

	// ErrAuth means the provider rejected the credentials. Providers
	// wrap it on login failure. Retrying cannot help, and repeated
	// failed logins risk an account lockout, so it stops a retry
	// chain immediately.
	ErrAuth = errors.New("authentication rejected")
)

// Session is one authenticated connection to the mail server. A
// session holds a working view (the selected mailbox); all UIDs are
// interpreted in that view. Implementations are not required to be
// goroutine-safe: every worker owns its session for the lifetime of
// one attempt.
type Session interface {
	// Select switches the working view to the named mailbox.
	Select(ctx context.Context, mailbox string) error

	// Mailboxes lists all folders with their attribute flags.
	Mailboxes(ctx context.Context) ([]Mailbox, error)

	// SearchLabel runs the combined tag+location query in the
	// selected view and returns matching UIDs in server order.
	SearchLabel(ctx context.Context, q LabelQuery) ([]UID, error)

	// SearchMessageID finds messages whose stable identifier matches,
	// in the selected view, optionally restricted to inbox membership.
	SearchMessageID(ctx context.Context, messageID string, inboxOnly bool) ([]UID, error)

	// MessageID fetches the stable identifier header of uid. Only the
	// single header is transferred, never the body. Returns an error
	// wrapping ErrNoSuchMessage when uid does not resolve or the
	// header is missing.
	MessageID(ctx context.Context, uid UID) (string, error)

	// RemoveInboxLabel removes the inbox-presence label from uid.
	// Idempotent: removing an absent label is a no-op.
	RemoveInboxLabel(ctx context.Context, uid UID) error

	// MarkRead sets the read flag on the given UIDs. Idempotent.
	MarkRead(ctx context.Context, uids ...UID) error

	// Move relocates uid from the selected mailbox into dest.
	Move(ctx context.Context, uid UID, dest string) error

	// Close terminates the session. Best-effort; errors are swallowed.
	Close()
}

// Provider opens authenticated sessions. Each call yields an
// independent connection so one attempt's connection state cannot
// poison the next.
type Provider interface {
	Open(ctx context.Context) (Session, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Session, error)

// Open calls f.
func (f ProviderFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// Outcome is the final disposition of one candidate message.
type Outcome struct {
	// UID is the message's inbox-view identifier.
	UID UID

	// Archived reports whether the message left the inbox view.
	Archived bool

	// Fallback reports that the relocation fallback did the work
	// rather than the canonical label removal.
	Fallback bool

	// Attempts is the number of attempts actually made.
	Attempts int

	// Err is the last error when the message was not archived.
	Err error
}

// Summary aggregates the outcomes of one sweep.
type Summary struct {
	// Attempted counts candidates handed to a worker.
	Attempted int

	// Archived counts messages confirmed out of the inbox view.
	Archived int

	// Failed counts messages whose retry budget was exhausted.
	Failed int

	// MarkedRead counts messages marked read by the secondary
	// consistency pass.
	MarkedRead int
}

// terminal reports whether err should stop a retry chain early:
// cancellation and rejected credentials. Everything else — archive
// index lag, dropped connections, rate throttling, vanished headers —
// stays retryable within the budget.
func terminal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrAuth)
}
