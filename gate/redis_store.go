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
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultStoreTimeout bounds each individual counting-store command or
// transaction attempt.
const DefaultStoreTimeout = 250 * time.Millisecond

// CountingStore is a thin façade over a Redis sorted set per counter
// key. Each entry is a (score = event time in ms, member = unique event
// id) pair. The store does not interpret semantics; the sliding-window
// counter composes these commands into admission decisions.
//
// Any transport failure is wrapped as ErrStoreUnavailable; an
// optimistic-transaction conflict is reported as errTxnConflict.
type CountingStore struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewCountingStore creates a store adapter over an established Redis
// client. A non-positive opTimeout falls back to DefaultStoreTimeout.
func NewCountingStore(client *redis.Client, opTimeout time.Duration) *CountingStore {
	if opTimeout <= 0 {
		opTimeout = DefaultStoreTimeout
	}
	return &CountingStore{client: client, opTimeout: opTimeout}
}

// ConnectStore parses a Redis URL, opens a pooled client and verifies
// connectivity before returning the adapter.
func ConnectStore(redisURL string, opTimeout time.Duration) (*CountingStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewCountingStore(client, opTimeout), nil
}

// Close releases the underlying client.
func (s *CountingStore) Close() error {
	return s.client.Close()
}

// Trim removes every entry whose score lies in [minScore, maxScore].
func (s *CountingStore) Trim(ctx context.Context, key string, minScore, maxScore int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return wrapStoreErr(s.client.ZRemRangeByScore(ctx, key,
		strconv.FormatInt(minScore, 10), strconv.FormatInt(maxScore, 10)).Err())
}

// Cardinality returns the current entry count of the key.
func (s *CountingStore) Cardinality(ctx context.Context, key string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return int(n), nil
}

// Add inserts one timestamped entry.
func (s *CountingStore) Add(ctx context.Context, key string, score int64, member string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return wrapStoreErr(s.client.ZAdd(ctx, key, &redis.Z{
		Score:  float64(score),
		Member: member,
	}).Err())
}

// Expire sets or refreshes the key's TTL.
func (s *CountingStore) Expire(ctx context.Context, key string, seconds int) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return wrapStoreErr(s.client.Expire(ctx, key, time.Duration(seconds)*time.Second).Err())
}

// CountSince returns the number of entries with score >= minScore. Used
// for non-consuming status reads.
func (s *CountingStore) CountSince(ctx context.Context, key string, minScore int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	n, err := s.client.ZCount(ctx, key, strconv.FormatInt(minScore, 10), "+inf").Result()
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return int(n), nil
}

// Txn is the read/write surface available inside one optimistic
// transaction on a single watched key. Reads run immediately on the
// watched connection; Commit applies the queued writes atomically and
// fails with errTxnConflict when the key changed since the watch began.
type Txn struct {
	ctx context.Context
	tx  *redis.Tx
	key string
}

// Trim removes entries in [minScore, maxScore] on the watched key.
func (t *Txn) Trim(minScore, maxScore int64) error {
	return wrapStoreErr(t.tx.ZRemRangeByScore(t.ctx, t.key,
		strconv.FormatInt(minScore, 10), strconv.FormatInt(maxScore, 10)).Err())
}

// Cardinality returns the entry count of the watched key.
func (t *Txn) Cardinality() (int, error) {
	n, err := t.tx.ZCard(t.ctx, t.key).Result()
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return int(n), nil
}

// Commit atomically adds one entry and refreshes the TTL. Returns
// errTxnConflict when the watched key was modified concurrently.
func (t *Txn) Commit(score int64, member string, ttlSeconds int) error {
	_, err := t.tx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(t.ctx, t.key, &redis.Z{Score: float64(score), Member: member})
		pipe.Expire(t.ctx, t.key, time.Duration(ttlSeconds)*time.Second)
		return nil
	})
	if errors.Is(err, redis.TxFailedErr) {
		return errTxnConflict
	}
	return wrapStoreErr(err)
}

// InTxn runs fn inside an optimistic transaction observing key.
// Returning from fn without calling Commit aborts without writing.
func (s *CountingStore) InTxn(ctx context.Context, key string, fn func(tx *Txn) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		return fn(&Txn{ctx: ctx, tx: tx, key: key})
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return errTxnConflict
	}
	return wrapStoreErr(err)
}

// wrapStoreErr tags transport failures as ErrStoreUnavailable while
// letting already-classified errors pass through.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errTxnConflict) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
