package auth

import (
	"context"
	"log"
	"time"
)

// StartSweeper garbage-collects ledger entries that are both revoked
// and past expiry, on the given interval, until ctx is cancelled. Sweep
// failures are logged and retried on the next tick; the loop never
// stops the server. onSwept, if non-nil, observes the collected count.
func StartSweeper(ctx context.Context, ledger Ledger, interval time.Duration, onSwept func(int64)) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ledger.Sweep(ctx)
			if err != nil {
				log.Printf("token-sweeper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token-sweeper: collected %d dead tokens", n)
			}
			if onSwept != nil {
				onSwept(n)
			}
		}
	}
}
