// Package labels inventories the account's user-created Gmail labels
// and how much of the inbox each one covers.
package labels

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/labelsweep/labelsweep/internal/archive"
)

// Session is the slice of the IMAP surface this package needs.
type Session interface {
	Select(ctx context.Context, mailbox string) error
	Mailboxes(ctx context.Context) ([]archive.Mailbox, error)
	SearchLabel(ctx context.Context, q archive.LabelQuery) ([]archive.UID, error)
}

// Count is one label with the number of inbox messages carrying it.
type Count struct {
	Label string
	Inbox int
}

// Gmail exposes its built-in folders as mailboxes alongside user
// labels. These are never sweep targets.
var systemBoxes = map[string]bool{
	"INBOX":  true,
	"Sent":   true,
	"Drafts": true,
	"Trash":  true,
	"Spam":   true,
}

// UserLabels filters a mailbox listing down to user-created labels.
// Everything under the [Gmail] namespace and the classic system boxes
// are excluded.
func UserLabels(boxes []archive.Mailbox) []string {
	var labels []string
	for _, box := range boxes {
		if strings.HasPrefix(box.Name, "[") || systemBoxes[box.Name] {
			continue
		}
		labels = append(labels, box.Name)
	}
	sort.Strings(labels)
	return labels
}

// InboxCounts lists every user label with its current inbox coverage,
// most-covered first.
func InboxCounts(ctx context.Context, sess Session) ([]Count, error) {
	boxes, err := sess.Mailboxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	if err := sess.Select(ctx, archive.MailboxInbox); err != nil {
		return nil, err
	}

	counts := make([]Count, 0, len(boxes))
	for _, label := range UserLabels(boxes) {
		uids, err := sess.SearchLabel(ctx, archive.LabelQuery{Label: label, InboxOnly: true})
		if err != nil {
			return nil, fmt.Errorf("count label %q: %w", label, err)
		}
		counts = append(counts, Count{Label: label, Inbox: len(uids)})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Inbox != counts[j].Inbox {
			return counts[i].Inbox > counts[j].Inbox
		}
		return counts[i].Label < counts[j].Label
	})
	return counts, nil
}

// Write renders the counts as an aligned table.
func Write(w io.Writer, counts []Count) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tIN INBOX")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Label, c.Inbox)
	}
	tw.Flush()
}
