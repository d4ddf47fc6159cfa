package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOutboxFull   = errors.New("outbox full")
	ErrOutboxClosed = errors.New("outbox closed")
)

const drainTimeout = 5 * time.Second

type envelope struct {
	id       string
	msg      Message
	queuedAt time.Time
}

// Outbox queues messages for a single worker that hands them to the
// underlying Sender in FIFO order. Deliver never blocks; failed deliveries
// are logged and dropped. Once Run has returned, Deliver refuses new
// messages with ErrOutboxClosed.
type Outbox struct {
	next   Sender
	queue  chan envelope
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewOutbox(next Sender, size int, logger *slog.Logger) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{
		next:   next,
		queue:  make(chan envelope, size),
		logger: logger,
	}
}

// Deliver enqueues msg. The returned Result only describes the enqueue.
func (o *Outbox) Deliver(_ context.Context, msg Message) Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return Result{RecipientID: msg.Recipient.ID, Err: ErrOutboxClosed}
	}

	env := envelope{id: uuid.NewString(), msg: msg, queuedAt: time.Now()}
	select {
	case o.queue <- env:
		return Result{RecipientID: msg.Recipient.ID, DeliveryID: env.id}
	default:
		return Result{RecipientID: msg.Recipient.ID, Err: ErrOutboxFull}
	}
}

// Run delivers queued messages until ctx is done, then makes a bounded
// attempt to flush what is left.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			o.close()
			o.drain()
			return nil
		case env := <-o.queue:
			o.send(ctx, env)
		}
	}
}

func (o *Outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

func (o *Outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case env := <-o.queue:
			o.send(ctx, env)
		default:
			return
		}
	}
}

func (o *Outbox) send(ctx context.Context, env envelope) {
	res := o.next.Deliver(ctx, env.msg)
	if !res.OK() {
		o.logger.Error("failed calling send api",
			"delivery_id", env.id,
			"recipient", env.msg.Recipient.ID,
			"status", res.StatusCode,
			"error", res.Err,
		)
		return
	}
	o.logger.Debug("message delivered",
		"delivery_id", env.id,
		"recipient", res.RecipientID,
		"message_id", res.MessageID,
		"queued_ms", time.Since(env.queuedAt).Milliseconds(),
	)
}

// Len reports how many messages are waiting.
func (o *Outbox) Len() int { return len(o.queue) }

// Check fails while the queue is saturated.
func (o *Outbox) Check(context.Context) error {
	if n := len(o.queue); n == cap(o.queue) {
		return fmt.Errorf("%w: %d queued", ErrOutboxFull, n)
	}
	return nil
}
