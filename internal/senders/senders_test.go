package senders

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/labelsweep/labelsweep/internal/archive"
)

type fakeSession struct {
	labels map[archive.UID][]string
	froms  map[archive.UID]string

	fetchBatches int
}

func (f *fakeSession) Select(ctx context.Context, mailbox string) error { return nil }

func (f *fakeSession) SearchAll(ctx context.Context, query string) ([]archive.UID, error) {
	uids := make([]archive.UID, 0, len(f.labels))
	for uid := range f.labels {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeSession) Labels(ctx context.Context, uid archive.UID) ([]string, error) {
	return f.labels[uid], nil
}

func (f *fakeSession) FromAddresses(ctx context.Context, uids []archive.UID) (map[archive.UID]string, error) {
	f.fetchBatches++
	out := map[archive.UID]string{}
	for _, uid := range uids {
		if from, ok := f.froms[uid]; ok {
			out[uid] = from
		}
	}
	return out, nil
}

func TestHasUserLabel(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   bool
	}{
		{"system only", []string{`\Inbox`, `\Important`}, false},
		{"no labels", nil, false},
		{"user label present", []string{`\Inbox`, "Receipts"}, true},
		{"starred is not classification", []string{`\Inbox`, `\Starred`}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasUserLabel(tt.labels); got != tt.want {
				t.Errorf("hasUserLabel(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestUnlabeledCountsAndSorts(t *testing.T) {
	sess := &fakeSession{
		labels: map[archive.UID][]string{
			1: {`\Inbox`},
			2: {`\Inbox`},
			3: {`\Inbox`, "Receipts"}, // classified, excluded
			4: {`\Inbox`, `\Starred`},
			5: {`\Inbox`},
		},
		froms: map[archive.UID]string{
			1: "News@Example.com",
			2: "news@example.com",
			4: "alerts@example.com",
			5: "news@example.com",
		},
	}

	counts, err := Unlabeled(context.Background(), sess, 25)
	if err != nil {
		t.Fatalf("Unlabeled: %v", err)
	}
	want := []Count{
		{From: "news@example.com", Messages: 3},
		{From: "alerts@example.com", Messages: 1},
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestUnlabeledBatchesFetches(t *testing.T) {
	sess := &fakeSession{
		labels: map[archive.UID][]string{},
		froms:  map[archive.UID]string{},
	}
	for uid := archive.UID(1); uid <= 5; uid++ {
		sess.labels[uid] = []string{`\Inbox`}
		sess.froms[uid] = "a@b.c"
	}

	if _, err := Unlabeled(context.Background(), sess, 2); err != nil {
		t.Fatalf("Unlabeled: %v", err)
	}
	if sess.fetchBatches != 3 {
		t.Errorf("fetched in %d batches, want 3 for 5 messages at size 2", sess.fetchBatches)
	}
}
