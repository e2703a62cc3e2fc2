package filesink

import (
	"context"
	"time"
)

// retentionCheckInterval is how often the scheduler looks for expired dated
// files when retention is enabled.
const retentionCheckInterval = time.Hour

// scheduler drives the periodic flush and the optional retention pass from a
// single background goroutine. It owns no buffer or descriptor state and
// holds the core lock only for the duration of each flush.
type scheduler struct {
	interval  time.Duration
	flush     func() error
	report    func(error)
	retention func()

	cancel context.CancelFunc
	done   chan struct{}
}

// start launches the loop. ctx parents the loop's lifetime; stop cancels and
// joins it.
func (s *scheduler) start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var retentionChan <-chan time.Time // nil channel when retention is off
	if s.retention != nil {
		retentionTicker := time.NewTicker(retentionCheckInterval)
		defer retentionTicker.Stop()
		retentionChan = retentionTicker.C
		s.retention()
	}

	for {
		select {
		case <-ticker.C:
			// A failed flush keeps the buffer intact, surface it and
			// keep ticking.
			if err := s.flush(); err != nil {
				s.report(err)
			}
		case <-retentionChan:
			s.retention()
		case <-ctx.Done():
			return
		}
	}
}

// stop cancels the loop and waits for it to exit. No flush runs after stop
// returns.
func (s *scheduler) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}
