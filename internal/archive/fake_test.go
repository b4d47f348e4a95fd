package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// fakeMessage is one logical message in the fake account. The same
// message is visible through the inbox view (inboxUID) and the
// archive view (archiveUID), mirroring the two identifier spaces the
// engine must bridge.
type fakeMessage struct {
	msgid      string
	inboxUID   UID
	archiveUID UID
	labels     map[string]bool
	inInbox    bool
	seen       bool

	// moved counts relocations via Move.
	moved int

	// lagLeft makes the archive view return no match for this many
	// searches, simulating search index lag.
	lagLeft int

	// headerMissing makes MessageID fail as if the message vanished
	// from the inbox view.
	headerMissing bool

	// stubborn makes label removal fail to clear inbox visibility,
	// forcing the relocation fallback.
	stubborn bool

	// panicOnFetch makes MessageID panic, for the worker fault
	// boundary test.
	panicOnFetch bool
}

func promoMsg(msgid string, inboxUID, archiveUID UID) *fakeMessage {
	return &fakeMessage{
		msgid:      msgid,
		inboxUID:   inboxUID,
		archiveUID: archiveUID,
		labels:     map[string]bool{"Promo": true},
		inInbox:    true,
	}
}

// fakeServer is the shared account state behind fake sessions.
type fakeServer struct {
	mu       sync.Mutex
	messages []*fakeMessage
	boxes    []Mailbox

	opens       int
	closes      int
	openErr     error
	selectErr   map[string]error
	markReadErr error
	moveErr     error
}

func newFakeServer(msgs ...*fakeMessage) *fakeServer {
	return &fakeServer{
		messages: msgs,
		boxes: []Mailbox{
			{Name: "INBOX", Attrs: []string{`\HasNoChildren`}},
			{Name: "[Gmail]/All Mail", Attrs: []string{`\HasNoChildren`, `\All`}},
		},
		selectErr: map[string]error{},
	}
}

func (f *fakeServer) Open(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return &fakeSession{srv: f}, nil
}

func (f *fakeServer) provider() Provider {
	return ProviderFunc(f.Open)
}

func (f *fakeServer) byInboxUID(uid UID) *fakeMessage {
	for _, m := range f.messages {
		if m.inboxUID == uid {
			return m
		}
	}
	return nil
}

func (f *fakeServer) byArchiveUID(uid UID) *fakeMessage {
	for _, m := range f.messages {
		if m.archiveUID == uid {
			return m
		}
	}
	return nil
}

// fakeSession implements Session over the shared fake server.
type fakeSession struct {
	srv    *fakeServer
	folder string
}

func (s *fakeSession) inArchive() bool { return s.folder != MailboxInbox }

func (s *fakeSession) Select(ctx context.Context, mailbox string) error {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	if err := s.srv.selectErr[mailbox]; err != nil {
		return err
	}
	s.folder = mailbox
	return nil
}

func (s *fakeSession) Mailboxes(ctx context.Context) ([]Mailbox, error) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	return s.srv.boxes, nil
}

func (s *fakeSession) SearchLabel(ctx context.Context, q LabelQuery) ([]UID, error) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	var uids []UID
	for _, m := range s.srv.messages {
		if q.Label != "" && !m.labels[q.Label] {
			continue
		}
		if q.InboxOnly && !m.inInbox {
			continue
		}
		if q.UnreadOnly && m.seen {
			continue
		}
		if s.inArchive() {
			uids = append(uids, m.archiveUID)
		} else if m.inInbox {
			uids = append(uids, m.inboxUID)
		}
	}
	return uids, nil
}

func (s *fakeSession) SearchMessageID(ctx context.Context, messageID string, inboxOnly bool) ([]UID, error) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	var uids []UID
	for _, m := range s.srv.messages {
		if m.msgid != messageID {
			continue
		}
		if inboxOnly {
			if m.inInbox {
				uids = append(uids, m.inboxUID)
			}
			continue
		}
		if s.inArchive() && m.lagLeft > 0 {
			m.lagLeft--
			continue
		}
		uids = append(uids, m.archiveUID)
	}
	return uids, nil
}

func (s *fakeSession) MessageID(ctx context.Context, uid UID) (string, error) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	m := s.srv.byInboxUID(uid)
	if m != nil && m.panicOnFetch {
		panic("fetch exploded")
	}
	if m == nil || m.headerMissing || !m.inInbox {
		return "", fmt.Errorf("uid %d: %w", uid, ErrNoSuchMessage)
	}
	return m.msgid, nil
}

func (s *fakeSession) RemoveInboxLabel(ctx context.Context, uid UID) error {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	m := s.srv.byArchiveUID(uid)
	if m == nil {
		return nil
	}
	if !m.stubborn {
		m.inInbox = false
	}
	return nil
}

func (s *fakeSession) MarkRead(ctx context.Context, uids ...UID) error {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	if s.srv.markReadErr != nil {
		return s.srv.markReadErr
	}
	for _, uid := range uids {
		var m *fakeMessage
		if s.inArchive() {
			m = s.srv.byArchiveUID(uid)
		} else {
			m = s.srv.byInboxUID(uid)
		}
		if m != nil {
			m.seen = true
		}
	}
	return nil
}

func (s *fakeSession) Move(ctx context.Context, uid UID, dest string) error {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	if s.srv.moveErr != nil {
		return s.srv.moveErr
	}
	m := s.srv.byInboxUID(uid)
	if m == nil {
		return fmt.Errorf("uid %d: %w", uid, ErrNoSuchMessage)
	}
	m.inInbox = false
	m.moved++
	return nil
}

func (s *fakeSession) Close() {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	s.srv.closes++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
