package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Dispatcher sends messages in the background with bounded concurrency.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   zerolog.Logger

	group   errgroup.Group
	pending sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher that runs at most workers sends at once,
// each bounded by timeout.
func NewDispatcher(notifier Notifier, workers int, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}

	d := &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.With().Str("component", "notify-dispatcher").Logger(),
	}
	d.group.SetLimit(workers)
	return d
}

// Dispatch queues msgs and returns immediately. Messages dispatched after Close are dropped.
func (d *Dispatcher) Dispatch(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Int("count", len(msgs)).Msg("dispatcher closed, dropping notifications")
		return
	}

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		for _, msg := range msgs {
			d.group.Go(func() error {
				d.send(msg)
				return nil
			})
		}
	}()
}

func (d *Dispatcher) send(msg Message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.notifier.Send(ctx, msg); err != nil {
		d.logger.Error().
			Err(err).
			Str("kind", string(msg.Kind)).
			Str("to", msg.To).
			Msg("failed to send notification")
		return
	}

	d.logger.Debug().
		Str("kind", string(msg.Kind)).
		Str("to", msg.To).
		Msg("notification sent")
}

// Close stops accepting messages and waits for in-flight sends or ctx expiry.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("notification dispatcher drained")
		return nil
	case <-ctx.Done():
		d.logger.Warn().Msg("notification dispatcher close timed out")
		return ctx.Err()
	}
}
