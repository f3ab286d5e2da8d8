package discovery

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

const DefaultRefreshInterval = 30 * time.Second

// Watcher polls a Locator and feeds position changes to the orchestrator.
type Watcher struct {
	orch     *Orchestrator
	locator  Locator
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	scheduler *gocron.Scheduler
	ctx       context.Context
	done      chan struct{}
	stopOnce  sync.Once
	exited    chan struct{}
}

func NewWatcher(orch *Orchestrator, locator Locator, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		orch:     orch,
		locator:  locator,
		interval: interval,
		timeout:  orch.opts.LocateTimeout,
		logger:   logger,
	}
}

// Start schedules a tick every interval until Stop is called or ctx is done.
// Ticks never overlap.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx = ctx
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(w.interval).WaitForSchedule().Do(w.tick); err != nil {
		return fmt.Errorf("scheduling location refresh: %w", err)
	}
	w.scheduler = s
	w.done = make(chan struct{})
	w.exited = make(chan struct{})
	s.StartAsync()

	go func() {
		defer close(w.exited)
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.done:
		}
	}()
	return nil
}

// Stop halts the scheduler. It is safe to call more than once.
func (w *Watcher) Stop() {
	if w.scheduler == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.done)
		w.scheduler.Stop()
	})
}

func (w *Watcher) tick() {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	locCtx, cancel := context.WithTimeout(ctx, w.timeout)
	position, err := w.locator.Locate(locCtx)
	cancel()
	if err != nil {
		w.logger.Printf("LOCATE refresh skipped err=%v", err)
		return
	}
	if err := w.orch.UpdateLocation(ctx, position); err != nil {
		w.logger.Printf("ERROR refresh position=%s err=%v", position, err)
	}
}
