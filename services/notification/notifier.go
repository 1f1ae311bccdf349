package notification

import (
	"context"
	"sync"
	"time"

	"soothe/models"

	"go.uber.org/zap"
)

// Notifier delivers a booking notice over one channel.
type Notifier interface {
	Notify(ctx context.Context, notice models.BookingNotice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notice models.BookingNotice) error

func (f NotifierFunc) Notify(ctx context.Context, notice models.BookingNotice) error {
	return f(ctx, notice)
}

// queueSize bounds the notices waiting on one slow channel.
const queueSize = 256

// Dispatcher fans a notice out to every channel in the background. Each
// channel has one queue and one worker, so a channel sees notices in the
// order they were dispatched. Notify never blocks the caller and never
// fails; channel errors are logged.
type Dispatcher struct {
	logger  *zap.Logger
	timeout time.Duration
	queues  map[string]chan models.BookingNotice

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	workers sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, channels map[string]Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:  logger,
		timeout: 10 * time.Second,
		queues:  make(map[string]chan models.BookingNotice, len(channels)),
	}
	for name, ch := range channels {
		q := make(chan models.BookingNotice, queueSize)
		d.queues[name] = q
		d.workers.Add(1)
		go d.run(name, ch, q)
	}
	return d
}

func (d *Dispatcher) run(name string, ch Notifier, q <-chan models.BookingNotice) {
	defer d.workers.Done()
	for notice := range q {
		d.deliver(name, ch, notice)
		d.pending.Done()
	}
}

func (d *Dispatcher) deliver(name string, ch Notifier, notice models.BookingNotice) {
	// Detached from the request context: the caller has already answered.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := ch.Notify(ctx, notice); err != nil {
		d.logger.Warn("Notification delivery failed",
			zap.String("channel", name),
			zap.String("booking_id", notice.BookingID),
			zap.String("kind", string(notice.Kind)),
			zap.Error(err))
	}
}

func (d *Dispatcher) Notify(_ context.Context, notice models.BookingNotice) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil
	}
	for name, q := range d.queues {
		d.pending.Add(1)
		select {
		case q <- notice:
		default:
			d.pending.Done()
			d.logger.Warn("Notification queue full, dropping notice",
				zap.String("channel", name),
				zap.String("booking_id", notice.BookingID),
				zap.String("kind", string(notice.Kind)))
		}
	}
	return nil
}

// Wait blocks until every queued delivery has finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

// Close delivers what is queued and stops the workers. Later notices are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.workers.Wait()
}
