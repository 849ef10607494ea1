// Copyright 2026 RateGate
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

package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is the optimistic-transaction retry budget of one
// CheckAndConsume call.
const DefaultMaxRetries = 5

// SlidingWindowLimiter admits at most one event atomically against a
// (key, window, limit) triple, counting events in the rolling interval
// [now - window, now] over the shared counting store.
//
// Concurrent admissions on the same key are linearized by the store's
// optimistic transaction: a writer that loses the race retries with a
// fresh view, bounded by the retry budget.
type SlidingWindowLimiter struct {
	store      *CountingStore
	maxRetries int
}

// NewSlidingWindowLimiter creates a limiter over the counting store.
// A non-positive maxRetries falls back to DefaultMaxRetries.
func NewSlidingWindowLimiter(store *CountingStore, maxRetries int) *SlidingWindowLimiter {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &SlidingWindowLimiter{store: store, maxRetries: maxRetries}
}

// CheckAndConsume atomically admits at most one event on key.
//
// The returned count is the count including the just-added event on
// admit, the observed count that caused the rejection otherwise. When
// the retry budget is exhausted by concurrent writers it returns
// (false, -1, nil); infrastructure failures return ErrStoreUnavailable.
func (l *SlidingWindowLimiter) CheckAndConsume(ctx context.Context, key string, windowSeconds, limit int) (bool, int, error) {
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		nowMs := time.Now().UnixMilli()
		windowStartMs := nowMs - int64(windowSeconds)*1000

		var allowed bool
		var count int
		err := l.store.InTxn(ctx, key, func(tx *Txn) error {
			if err := tx.Trim(0, windowStartMs-1); err != nil {
				return err
			}
			current, err := tx.Cardinality()
			if err != nil {
				return err
			}

			// At or above the limit: reject without writing. Returning
			// here aborts the transaction, leaving the counter untouched.
			if current >= limit {
				allowed, count = false, current
				return nil
			}

			if err := tx.Commit(nowMs, eventMember(nowMs), 2*windowSeconds); err != nil {
				return err
			}
			allowed, count = true, current+1
			return nil
		})
		if errors.Is(err, errTxnConflict) {
			storeConflictsTotal.Inc()
			continue
		}
		if err != nil {
			return false, 0, err
		}
		return allowed, count, nil
	}

	// Could not commit within the retry budget. Conservative fallback:
	// no event was consumed, the caller decides how to surface it.
	return false, -1, nil
}

// Status reports the current in-window count of key without consuming
// an event.
func (l *SlidingWindowLimiter) Status(ctx context.Context, key string, windowSeconds int) (int, error) {
	windowStartMs := time.Now().UnixMilli() - int64(windowSeconds)*1000
	return l.store.CountSince(ctx, key, windowStartMs)
}

// eventMember builds the unique member for one admitted event. The
// nonce keeps two admissions within the same millisecond from colliding
// on the sorted-set member.
func eventMember(nowMs int64) string {
	return fmt.Sprintf("%d-%s", nowMs, uuid.NewString())
}
