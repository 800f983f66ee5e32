// Package requester wraps outbound calls with a per-attempt timeout and a
// bounded linear-backoff retry loop.
package requester

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/models"
)

// Operation is one network call. It must honor ctx cancellation; the ctx it
// receives carries the per-attempt deadline. Results are captured by closure.
type Operation func(ctx context.Context) error

// Requester retries transient network failures. It holds no per-operation
// state and is safe to share across controllers.
type Requester struct {
	baseDelay time.Duration
	logger    *logrus.Logger
}

// New creates a requester with the linear backoff unit delay
func New(baseDelay time.Duration, logger *logrus.Logger) *Requester {
	return &Requester{
		baseDelay: baseDelay,
		logger:    logger,
	}
}

// Do runs op, retrying up to maxRetries additional times after the first
// attempt. Each attempt is bounded by perAttemptTimeout (0 means unbounded,
// used for streamed transfers); exceeding it cancels the attempt and counts
// as an ordinary failure. The delay before retry n is n*baseDelay. The last
// attempt's error is returned once retries are exhausted. Remote-reported and
// malformed-data errors are not retried.
func (r *Requester) Do(ctx context.Context, op Operation, maxRetries int, perAttemptTimeout time.Duration) error {
	attempt := 0

	work := func() error {
		attempt++

		attemptCtx := ctx
		cancel := func() {}
		if perAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, perAttemptTimeout)
		}
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}

		// Caller cancellation ends the loop regardless of attempts left
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if models.IsPermanent(err) {
			return backoff.Permanent(err)
		}

		r.logger.WithError(err).WithField("attempt", attempt).Debug("Attempt failed, will retry if budget remains")
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(r.baseDelay), uint64(maxRetries)),
		ctx,
	)
	return backoff.Retry(work, policy)
}

// linearBackOff yields attempt*base: base, 2*base, 3*base, ...
type linearBackOff struct {
	base    time.Duration
	attempt int64
}

func newLinearBackOff(base time.Duration) *linearBackOff {
	return &linearBackOff{base: base}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
