package token

import (
	"context"
	"sync"
	"time"

	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/zap"
)

// Sweeper periodically purges records past their storage grace window. It
// only exists for storage hygiene; Validate enforces expiry on its own.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *logging.Service

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func NewSweeper(service *Service, interval time.Duration, logger *logging.Service) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger.Named("sweeper"),
	}
}

func (w *Sweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || w.interval <= 0 {
		return
	}

	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	go w.loop(w.stop, w.done)

	if w.logger != nil {
		w.logger.Info("started token cleanup worker", zap.Duration("interval", w.interval))
	}
}

func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stop)
	done := w.done
	w.running = false
	w.mu.Unlock()

	<-done
}

func (w *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	removed, err := w.service.PurgeExpired(ctx)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("token cleanup failed", zap.Error(err))
		}
		return 0, err
	}

	if w.logger != nil && removed > 0 {
		w.logger.Info("expired token records cleaned up", zap.Int64("tokens_removed", removed))
	}
	return removed, nil
}

func (w *Sweeper) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_, _ = w.RunOnce(context.Background())
		}
	}
}
