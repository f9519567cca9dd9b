package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes expired state and reports how many items it dropped.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Janitor calls a Sweeper on a fixed interval until stopped.
type Janitor struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewJanitor(sweeper Sweeper, interval time.Duration, logger *zerolog.Logger) *Janitor {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "janitor").Logger()
	}
	return &Janitor{
		sweeper:  sweeper,
		interval: interval,
		log:      l,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called. A failed sweep is
// logged and retried on the next tick.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	defer close(j.doneChan)

	j.log.Debug().Dur("interval", j.interval).Msg("janitor started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			n, err := j.sweeper.Sweep(ctx)
			if err != nil {
				j.log.Error().Err(err).Msg("sweep failed")
				continue
			}
			if n > 0 {
				j.log.Info().Int("evicted", n).Msg("expired batch jobs removed")
			}
		}
	}
}

// Stop ends Run and waits for it to return. Safe to call more than once,
// but only after Run has been started.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	<-j.doneChan
}
