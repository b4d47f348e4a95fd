// Package senders surveys who is filling the unlabeled part of the
// inbox. Messages already classified by a user label are excluded: the
// point is to find senders that still need a filter.
package senders

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
	SearchAll(ctx context.Context, query string) ([]archive.UID, error)
	Labels(ctx context.Context, uid archive.UID) ([]string, error)
	FromAddresses(ctx context.Context, uids []archive.UID) (map[archive.UID]string, error)
}

// Count is one sender address with its unlabeled-inbox message count.
type Count struct {
	From     string
	Messages int
}

// Gmail reports these as X-GM-LABELS values on every message they
// apply to. None of them counts as user classification.
var systemLabels = map[string]bool{
	`\Inbox`:     true,
	`\Sent`:      true,
	`\Draft`:     true,
	`\Trash`:     true,
	`\Spam`:      true,
	`\Important`: true,
	`\Starred`:   true,
}

func hasUserLabel(labels []string) bool {
	for _, l := range labels {
		if !systemLabels[l] {
			return true
		}
	}
	return false
}

// Unlabeled counts inbox messages per sender, skipping any message
// that already carries a user label. Addresses are lowercased so the
// same sender is never split across case variants.
func Unlabeled(ctx context.Context, sess Session, batchSize int) ([]Count, error) {
	if batchSize < 1 {
		batchSize = 25
	}
	if err := sess.Select(ctx, archive.MailboxInbox); err != nil {
		return nil, err
	}
	uids, err := sess.SearchAll(ctx, "in:inbox")
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}

	var unlabeled []archive.UID
	for _, uid := range uids {
		labels, err := sess.Labels(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("labels for uid %d: %w", uid, err)
		}
		if !hasUserLabel(labels) {
			unlabeled = append(unlabeled, uid)
		}
	}

	byFrom := map[string]int{}
	for start := 0; start < len(unlabeled); start += batchSize {
		end := min(start+batchSize, len(unlabeled))
		froms, err := sess.FromAddresses(ctx, unlabeled[start:end])
		if err != nil {
			return nil, fmt.Errorf("fetch senders: %w", err)
		}
		for _, from := range froms {
			byFrom[strings.ToLower(from)]++
		}
	}

	counts := make([]Count, 0, len(byFrom))
	for from, n := range byFrom {
		counts = append(counts, Count{From: from, Messages: n})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Messages != counts[j].Messages {
			return counts[i].Messages > counts[j].Messages
		}
		return counts[i].From < counts[j].From
	})
	return counts, nil
}

// Write renders the counts as an aligned table, busiest sender first.
func Write(w io.Writer, counts []Count) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SENDER\tUNLABELED")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.From, c.Messages)
	}
	tw.Flush()
}
