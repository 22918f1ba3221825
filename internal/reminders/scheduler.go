package reminders

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Scheduler runs the poller on a fixed interval.
type Scheduler struct {
	poller   *Poller
	interval time.Duration

	ticker *time.Ticker
	cancel context.CancelFunc
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(poller *Poller, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{poller: poller, interval: interval}
}

// Start runs a tick immediately and then every interval until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(ctx, s.ticker, s.stop)

	slog.Info("statement reminder scheduler started", "interval", s.interval.String())
}

// Stop cancels any tick in flight and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.cancel()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	slog.Info("statement reminder scheduler stopped")
}

// RunNow runs one tick on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	return s.tick(ctx)
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-stop:
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) (int, error) {
	sent, err := s.poller.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sentry.CaptureException(err)
		}
		return sent, err
	}
	if sent > 0 {
		slog.Info("statement reminders sent", "action", "statement_reminders", "sent", sent)
	}
	return sent, nil
}
