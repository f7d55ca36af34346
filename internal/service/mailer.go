package service

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	q "github.com/iliyamo/worktime-ledger/internal/queue"
)

// SMTPMailer delivers through an SMTP relay.  PLAIN auth is used when User
// is set.
type SMTPMailer struct {
	Addr string // host:port
	User string
	Pass string
	From string
}

func (s *SMTPMailer) Deliver(ctx context.Context, m q.MailRequested) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.User != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.User, s.Pass, host)
	}
	return smtp.SendMail(s.Addr, auth, s.From, []string{m.To}, formatMessage(s.From, m))
}

func formatMessage(from string, m q.MailRequested) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// FileMailer appends every message to a log file instead of sending it.
// Used in development when no SMTP relay is configured.
type FileMailer struct {
	Path string

	mu sync.Mutex
}

func (f *FileMailer) Deliver(_ context.Context, m q.MailRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fh, err := os.OpenFile(f.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer fh.Close()

	line := fmt.Sprintf("[%s] Mail | to=%s | subject=%q | body=%q\n",
		time.Now().UTC().Format(time.RFC3339), m.To, m.Subject, m.Body)
	if _, err := fh.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// NewMailer picks SMTP when addr is set and the log file otherwise.
func NewMailer(addr, user, pass, from string) q.Deliverer {
	if addr == "" {
		return &FileMailer{Path: filepath.Join("logs", "mail.log")}
	}
	return &SMTPMailer{Addr: addr, User: user, Pass: pass, From: from}
}
