package gmail

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/labelsweep/labelsweep/internal/archive"
)

func TestParseListLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantName  string
		wantAttrs []string
		wantOK    bool
	}{
		{
			name:      "plain mailbox",
			line:      `* LIST (\HasNoChildren) "/" "INBOX"`,
			wantName:  "INBOX",
			wantAttrs: []string{`\HasNoChildren`},
			wantOK:    true,
		},
		{
			name:      "all mail with special-use attribute",
			line:      `* LIST (\HasNoChildren \All) "/" "[Gmail]/All Mail"`,
			wantName:  "[Gmail]/All Mail",
			wantAttrs: []string{`\HasNoChildren`, `\All`},
			wantOK:    true,
		},
		{
			name:      "unquoted name",
			line:      `* LIST (\HasNoChildren) "/" Receipts`,
			wantName:  "Receipts",
			wantAttrs: []string{`\HasNoChildren`},
			wantOK:    true,
		},
		{
			name:   "unrelated response line",
			line:   `a1 OK LIST completed`,
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, ok := parseListLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if box.Name != tt.wantName {
				t.Errorf("name = %q, want %q", box.Name, tt.wantName)
			}
			if diff := cmp.Diff(tt.wantAttrs, box.Attrs); diff != "" {
				t.Errorf("attrs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMessageID(t *testing.T) {
	tests := []struct {
		name   string
		resp   string
		want   string
		wantOK bool
	}{
		{
			name:   "header in fetch literal",
			resp:   "* 3 FETCH (BODY[HEADER.FIELDS (MESSAGE-ID)] {52}\r\nMessage-ID: <CABc123@mail.gmail.com>\r\n\r\n)",
			want:   "CABc123@mail.gmail.com",
			wantOK: true,
		},
		{
			name:   "lowercase header name",
			resp:   "message-id: <abc@example.org>",
			want:   "abc@example.org",
			wantOK: true,
		},
		{
			name:   "folded with leading whitespace",
			resp:   "Message-ID:\r\n <deep@fold.example>",
			want:   "deep@fold.example",
			wantOK: true,
		},
		{
			name:   "header absent",
			resp:   "* 3 FETCH (BODY[HEADER.FIELDS (MESSAGE-ID)] {2}\r\n\r\n)",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMessageID(tt.resp)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("message-id = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want []string
	}{
		{
			name: "mixed quoted and atom labels",
			resp: `* 12 FETCH (X-GM-LABELS ("\\Inbox" "Old Receipts" Promo) UID 99)`,
			want: []string{`\Inbox`, "Old Receipts", "Promo"},
		},
		{
			name: "no labels",
			resp: `* 12 FETCH (X-GM-LABELS () UID 99)`,
			want: nil,
		},
		{
			name: "no fetch data",
			resp: `a2 OK FETCH completed`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLabels(tt.resp)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchLabel(t *testing.T) {
	if got := searchLabel("Old Receipts"); got != "Old-Receipts" {
		t.Errorf("searchLabel = %q, want %q", got, "Old-Receipts")
	}
	if got := searchLabel("Promo"); got != "Promo" {
		t.Errorf("searchLabel = %q, want %q", got, "Promo")
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gmail rejection", errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials (Failure)"), true},
		{"lowercase variant", errors.New("imap: invalid credentials"), true},
		{"network failure", errors.New("dial tcp: connection refused"), false},
		{"server hiccup", errors.New("NO [UNAVAILABLE] Temporary System Problem"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAuthError(tt.err); got != tt.want {
				t.Errorf("isAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestJoinUIDs(t *testing.T) {
	got := joinUIDs([]archive.UID{3, 17, 4096})
	if got != "3,17,4096" {
		t.Errorf("joinUIDs = %q, want %q", got, "3,17,4096")
	}
}
