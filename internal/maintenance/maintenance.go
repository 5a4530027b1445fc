// Package maintenance periodically removes expired reels, sessions and reset tokens.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/logging"
)

// Result counts the rows removed by one cleanup pass
type Result struct {
	Reels       int64
	Sessions    int64
	ResetTokens int64
}

// Runner performs the cleanup passes
type Runner struct {
	reels     *database.ReelStore
	sessions  *database.SessionStore
	passwords *database.PasswordStore
	interval  time.Duration
	reelTTL   time.Duration
	now       func() time.Time
	passes    atomic.Int64
	logger    zerolog.Logger
}

// NewRunner creates a Runner. A nil clock uses time.Now.
func NewRunner(reels *database.ReelStore, sessions *database.SessionStore, passwords *database.PasswordStore, interval, reelTTL time.Duration, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{
		reels:     reels,
		sessions:  sessions,
		passwords: passwords,
		interval:  interval,
		reelTTL:   reelTTL,
		now:       now,
		logger:    logging.GetLogger("maintenance"),
	}
}

// Passes returns how many cleanup passes have completed
func (r *Runner) Passes() int64 {
	return r.passes.Load()
}

// RunOnce performs a single pass. Every step runs even when an earlier one
// fails; the errors are combined.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	var (
		res    Result
		result *multierror.Error
		err    error
	)
	now := r.now().UTC()

	if res.Reels, err = r.reels.DeleteReelsBefore(ctx, now.Add(-r.reelTTL)); err != nil {
		result = multierror.Append(result, fmt.Errorf("reels: %w", err))
	}
	if res.Sessions, err = r.sessions.PurgeSessions(ctx, now); err != nil {
		result = multierror.Append(result, fmt.Errorf("sessions: %w", err))
	}
	if res.ResetTokens, err = r.passwords.PurgeResetTokens(ctx, now); err != nil {
		result = multierror.Append(result, fmt.Errorf("reset tokens: %w", err))
	}

	r.passes.Inc()
	return res, result.ErrorOrNil()
}

// Run performs a pass immediately and then on every tick until ctx is done
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Dur("reel_ttl", r.reelTTL).Msg("Starting maintenance loop")
	r.pass(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Maintenance loop stopped")
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Runner) pass(ctx context.Context) {
	res, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Maintenance pass failed")
	}
	r.logger.Debug().
		Int64("reels", res.Reels).
		Int64("sessions", res.Sessions).
		Int64("reset_tokens", res.ResetTokens).
		Msg("Maintenance pass completed")
}
