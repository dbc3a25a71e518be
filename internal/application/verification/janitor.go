package verification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor periodically purges expired codes from a Sweeper.
// Expired records never match, so sweeping only reclaims space.
type Janitor struct {
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewJanitor(sweeper Sweeper, interval, timeout time.Duration, log *zap.Logger) *Janitor {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Janitor{sweeper: sweeper, interval: interval, timeout: timeout, log: log}
}

// Run sweeps every interval until ctx is cancelled.
// A non-positive interval disables sweeping.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.sweeper.Sweep(sctx)
	if err != nil {
		j.log.Warn("sweep expired codes", zap.Error(err))
		return
	}
	if n > 0 {
		j.log.Debug("swept expired codes", zap.Int64("removed", n))
	}
}
