package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	q "github.com/iliyamo/worktime-ledger/internal/queue"
)

// MailPublisher queues a message for later delivery.
type MailPublisher interface {
	PublishMail(ctx context.Context, m q.MailRequested) error
}

// Dispatcher is the notification sink handed to the account flows.  Send
// returns immediately; the message is queued in the background and, when
// the broker is unreachable, delivered directly through Fallback.  Failures
// are logged and never reach the caller.
type Dispatcher struct {
	Queue    MailPublisher
	Fallback q.Deliverer
	Log      *zap.Logger
	Timeout  time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(queue MailPublisher, fallback q.Deliverer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{Queue: queue, Fallback: fallback, Log: log, Timeout: 10 * time.Second}
}

// Send schedules delivery of one message.
func (d *Dispatcher) Send(recipient, subject, body string) {
	m := q.MailRequested{
		To:          recipient,
		Subject:     subject,
		Body:        body,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.Log.Error("mail dispatch panicked", zap.Any("panic", r))
			}
		}()
		d.dispatch(m)
	}()
}

func (d *Dispatcher) dispatch(m q.MailRequested) {
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	if d.Queue != nil {
		err := d.Queue.PublishMail(ctx, m)
		if err == nil {
			return
		}
		d.Log.Warn("mail queue unavailable, delivering directly", zap.String("to", m.To), zap.Error(err))
	}
	if d.Fallback == nil {
		d.Log.Error("mail dropped", zap.String("to", m.To), zap.String("subject", m.Subject))
		return
	}
	if err := d.Fallback.Deliver(ctx, m); err != nil {
		d.Log.Error("mail delivery failed", zap.String("to", m.To), zap.Error(err))
	}
}

// Wait blocks until every message handed to Send has been dispatched.
func (d *Dispatcher) Wait() { d.wg.Wait() }
