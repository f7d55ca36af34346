package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	q "github.com/iliyamo/worktime-ledger/internal/queue"
)

type fakeQueue struct {
	mu  sync.Mutex
	got []q.MailRequested
	err error
}

func (f *fakeQueue) PublishMail(_ context.Context, m q.MailRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, m)
	return f.err
}

type fakeDeliverer struct {
	mu  sync.Mutex
	got []q.MailRequested
}

func (f *fakeDeliverer) Deliver(_ context.Context, m q.MailRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, m)
	return nil
}

func TestDispatcherQueuesMail(t *testing.T) {
	queue, direct := &fakeQueue{}, &fakeDeliverer{}
	d := NewDispatcher(queue, direct, zap.NewNop())

	d.Send("a@example.com", "subject", "body")
	d.Wait()

	if len(queue.got) != 1 || queue.got[0].To != "a@example.com" || queue.got[0].RequestedAt == "" {
		t.Fatalf("unexpected queued mail %+v", queue.got)
	}
	if len(direct.got) != 0 {
		t.Fatal("fallback must not be used when the queue works")
	}
}

func TestDispatcherFallsBackWhenQueueFails(t *testing.T) {
	queue, direct := &fakeQueue{err: errors.New("broker down")}, &fakeDeliverer{}
	d := NewDispatcher(queue, direct, zap.NewNop())

	d.Send("a@example.com", "s", "b")
	d.Send("b@example.com", "s", "b")
	d.Wait()

	if len(direct.got) != 2 {
		t.Fatalf("expected 2 direct deliveries, got %d", len(direct.got))
	}
}

func TestDispatcherWithoutAnyTransportDoesNotPanic(t *testing.T) {
	d := NewDispatcher(nil, nil, zap.NewNop())
	d.Send("a@example.com", "s", "b")
	d.Wait()
}

func TestFileMailerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mail.log")
	m := &FileMailer{Path: path}
	ctx := context.Background()
	for _, to := range []string{"a@example.com", "b@example.com"} {
		if err := m.Deliver(ctx, q.MailRequested{To: to, Subject: "Hi", Body: "line1\nline2"}); err != nil {
			t.Fatalf("deliver: %v", err)
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "to=b@example.com") || !strings.Contains(lines[0], `line1\nline2`) {
		t.Fatalf("unexpected log contents:\n%s", raw)
	}
}

func TestFormatMessageUsesCRLF(t *testing.T) {
	msg := string(formatMessage("from@example.com", q.MailRequested{To: "to@example.com", Subject: "S", Body: "a\nb"}))
	if !strings.HasPrefix(msg, "From: from@example.com\r\nTo: to@example.com\r\nSubject: S\r\n") {
		t.Fatalf("unexpected headers: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\na\r\nb") {
		t.Fatalf("body lines must be CRLF separated: %q", msg)
	}
}

func TestNewMailerSelection(t *testing.T) {
	if _, ok := NewMailer("", "", "", "x@example.com").(*FileMailer); !ok {
		t.Fatal("expected file mailer without SMTP address")
	}
	if _, ok := NewMailer("smtp.example.com:587", "u", "p", "x@example.com").(*SMTPMailer); !ok {
		t.Fatal("expected SMTP mailer")
	}
}
