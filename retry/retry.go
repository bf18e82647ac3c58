// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package retry runs an operation with bounded exponential backoff on top
// of cenkalti/backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxInterval caps a single wait between attempts.
const maxInterval = 30 * time.Second

// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Policy describes how often and how patiently to retry.
// The zero value means a single attempt.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the wait before the second attempt; it doubles each retry.
	BaseDelay time.Duration
}

// Do runs operation under the policy.
func (p Policy) Do(ctx context.Context, operation func(context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	return WithBackoff(ctx, operation, attempts, p.BaseDelay)
}

// Permanent marks err as not worth retrying. WithBackoff returns the
// wrapped error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// WithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func WithBackoff(ctx context.Context, operation func(context.Context) error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = max(maxInterval, baseDelay)

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, operation(ctx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "next", next, "err", err)
		}),
	)
	if err == nil {
		if attempt > 1 {
			slog.Debug("operation succeeded after retry", "attempt", attempt)
		}
		return nil
	}

	// A permanent error on the final attempt comes back still wrapped.
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}
