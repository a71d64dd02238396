package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/logging"
)

// defaultDrainTimeout bounds how long Close waits for pending deliveries
// before cancelling them.
const defaultDrainTimeout = 10 * time.Second

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
	logger  *zap.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	drainTimeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []AlertConfig, logger *zap.Logger) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		configs:      configs,
		logger:       logging.OrNop(logger),
		ctx:          ctx,
		cancel:       cancel,
		drainTimeout: defaultDrainTimeout,
	}
}

// Dispatch sends the event to all webhooks whose Events list matches the
// event kind, or "blocked" for blocked evaluations. It does not block.
// Events dispatched after Close are dropped.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Debug("alert dropped after close", zap.String("kind", event.Kind))
		return
	}

	for _, cfg := range d.configs {
		if !matches(cfg.Events, event) {
			continue
		}
		d.wg.Add(1)
		go func(cfg AlertConfig) {
			defer d.wg.Done()
			if err := Send(d.ctx, cfg, event, d.logger); err != nil {
				d.logger.Warn("alert delivery failed",
					zap.String("url", cfg.URL),
					zap.String("kind", event.Kind),
					zap.Error(err))
			}
		}(cfg)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting events and waits for in-flight deliveries. Those
// still pending after the drain timeout are cancelled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	defer d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		d.logger.Warn("cancelling pending alert deliveries",
			zap.Duration("drain_timeout", d.drainTimeout))
		d.cancel()
		<-done
	}
}

func matches(events []string, event AlertEvent) bool {
	for _, e := range events {
		if e == event.Kind {
			return true
		}
		if event.Blocked && e == KindBlocked {
			return true
		}
	}
	return false
}
