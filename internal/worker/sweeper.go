package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/observability"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
)

const defaultPageSize = 200

// SweepReport summarizes one pass over the token registry.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Purged  int `json:"purged"`
	Corrupt int `json:"corrupt"`
}

// Sweeper periodically purges registry records whose refresh token has
// expired. It only deletes a record while it still holds the token that was
// found expired, so concurrent logins and rotations are never undone.
type Sweeper struct {
	registry repository.TokenRegistry
	codec    *auth.TokenCodec
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	pageSize int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(registry repository.TokenRegistry, codec *auth.TokenCodec, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		registry: registry,
		codec:    codec,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
		pageSize: defaultPageSize,
	}
}

// Start launches the periodic loop. It returns immediately; the loop ends
// when ctx is cancelled or Stop is called. Calling Start on a running
// sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.logger.Info("token sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("token sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("token sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one pass. Records failing verification with anything other
// than expiry are counted as corrupt and left in place.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := s.registry.Scan(ctx, after, s.pageSize)
		if err != nil {
			return report, fmt.Errorf("scan token records: %w", err)
		}

		for _, rec := range page {
			report.Scanned++

			_, verr := s.codec.Verify(rec.RefreshToken)
			switch {
			case verr == nil:
				continue
			case errors.Is(verr, auth.ErrExpired):
				deleted, err := s.registry.DeleteIfMatches(ctx, rec.PrincipalID, rec.RefreshToken)
				if err != nil {
					return report, fmt.Errorf("delete token record: %w", err)
				}
				if deleted {
					report.Purged++
				}
			default:
				report.Corrupt++
				s.logger.Error("corrupt token record",
					zap.String("principal_id", rec.PrincipalID),
					zap.Error(verr))
			}
		}

		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].PrincipalID
	}

	s.metrics.RecordSweep(report.Purged, report.Corrupt)
	if report.Purged > 0 || report.Corrupt > 0 {
		s.logger.Info("token sweep finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("purged", report.Purged),
			zap.Int("corrupt", report.Corrupt))
	}
	return report, nil
}
