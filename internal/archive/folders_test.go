package archive

import "testing"

func TestResolveAllMail(t *testing.T) {
	tests := []struct {
		name  string
		boxes []Mailbox
		want  string
	}{
		{
			name: "attribute wins over name",
			boxes: []Mailbox{
				{Name: "INBOX"},
				{Name: "[Gmail]/Wszystkie", Attrs: []string{`\HasNoChildren`, `\All`}},
				{Name: "[Gmail]/All Mail"},
			},
			want: "[Gmail]/Wszystkie",
		},
		{
			name: "english name fallback",
			boxes: []Mailbox{
				{Name: "INBOX"},
				{Name: "[Gmail]/All Mail", Attrs: []string{`\HasNoChildren`}},
			},
			want: "[Gmail]/All Mail",
		},
		{
			name: "french name fallback",
			boxes: []Mailbox{
				{Name: "INBOX"},
				{Name: "[Gmail]/Tous les messages"},
			},
			want: "[Gmail]/Tous les messages",
		},
		{
			name: "spanish name fallback",
			boxes: []Mailbox{
				{Name: "[Gmail]/Todos los mensajes"},
			},
			want: "[Gmail]/Todos los mensajes",
		},
		{
			name:  "nothing matches",
			boxes: []Mailbox{{Name: "INBOX"}, {Name: "Work"}},
			want:  DefaultAllMail,
		},
		{
			name:  "empty listing",
			boxes: nil,
			want:  DefaultAllMail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveAllMail(tt.boxes); got != tt.want {
				t.Errorf("ResolveAllMail() = %q, want %q", got, tt.want)
			}
		})
	}
}
