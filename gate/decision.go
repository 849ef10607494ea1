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
	"fmt"
	"sort"
	"strings"

	"rategate/platform/shared/logger"
)

// policyResolver maps a request context to its ordered effective limits.
type policyResolver interface {
	Resolve(ctx context.Context, req *CheckRequest) ([]EffectiveLimit, error)
}

// limitCounter admits or rejects one event against a single effective
// limit and reads the current in-window count.
type limitCounter interface {
	CheckAndConsume(ctx context.Context, key string, windowSeconds, limit int) (bool, int, error)
	Status(ctx context.Context, key string, windowSeconds int) (int, error)
}

// Service composes the resolver and the sliding-window counter into the
// single Decide operation the transport layer consumes.
type Service struct {
	resolver policyResolver
	counter  limitCounter
	log      *logger.Logger
}

// NewService wires the decision service.
func NewService(resolver policyResolver, counter limitCounter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New("rategate-decision")
	}
	return &Service{resolver: resolver, counter: counter, log: log}
}

// ValidateRequest rejects a context missing its required identifiers
// before any catalog or store work happens.
func ValidateRequest(req *CheckRequest) error {
	if req == nil || req.UserID == "" || req.ModelID == "" {
		return ErrInvalidRequest
	}
	return nil
}

// limitResult is the outcome of evaluating one effective limit.
type limitResult struct {
	limit   EffectiveLimit
	allowed bool
	count   int
}

// Decide answers whether the request should be admitted and which
// policy is binding.
//
// Every effective limit is evaluated exactly once, in resolver order
// and without short-circuiting, so every counter is incremented or
// observed and the caller gets a complete usage picture. On reject the
// most specific failing limit becomes the primary and Cause names it;
// on admit the primary is the limit with the least remaining headroom.
func (s *Service) Decide(ctx context.Context, req *CheckRequest) (*Decision, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	limits, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(limits) == 0 {
		return nil, ErrNoPolicy
	}

	results := make([]limitResult, 0, len(limits))
	for _, el := range limits {
		policyEvaluationsTotal.Inc()
		allowed, count, err := s.counter.CheckAndConsume(ctx, el.Key, el.WindowSeconds, el.Limit)
		if err != nil {
			return nil, err
		}
		if count < 0 {
			// Retry budget exhausted on this key: no decision is
			// fabricated from a counter we could not read atomically.
			return nil, fmt.Errorf("%w: key=%s", ErrStoreContention, el.Key)
		}
		results = append(results, limitResult{limit: el, allowed: allowed, count: count})
	}

	var failures, successes []limitResult
	for _, res := range results {
		if res.allowed {
			successes = append(successes, res)
		} else {
			failures = append(failures, res)
		}
	}

	if len(failures) > 0 {
		return composeReject(failures), nil
	}
	return composeAdmit(successes), nil
}

// composeReject builds the negative decision. The primary failure is
// the one with the highest scope precedence; the stable sort keeps
// resolver order as the tie-break.
func composeReject(failures []limitResult) *Decision {
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].limit.Scope.Precedence() > failures[j].limit.Scope.Precedence()
	})

	primary := failures[0]
	cause := fmt.Sprintf("%s exceeded: %d/%d in the last %d seconds (key=%s)",
		primary.limit.Label, primary.count, primary.limit.Limit,
		primary.limit.WindowSeconds, primary.limit.Key)

	if len(failures) > 1 {
		others := make([]string, 0, len(failures)-1)
		for _, f := range failures[1:] {
			others = append(others, fmt.Sprintf("%s (%d/%d)", f.limit.Label, f.count, f.limit.Limit))
		}
		cause += "; also violated: " + strings.Join(others, ", ")
	}

	return &Decision{
		Allowed:       false,
		Limit:         primary.limit.Limit,
		Count:         primary.count,
		WindowSeconds: primary.limit.WindowSeconds,
		Cause:         cause,
	}
}

// composeAdmit builds the positive decision. The primary is the limit
// with the minimum remaining headroom, ties broken by higher scope
// precedence, then resolver order.
func composeAdmit(successes []limitResult) *Decision {
	primary := successes[0]
	for _, cand := range successes[1:] {
		candRemaining := cand.limit.Limit - cand.count
		primRemaining := primary.limit.Limit - primary.count
		if candRemaining < primRemaining ||
			(candRemaining == primRemaining &&
				cand.limit.Scope.Precedence() > primary.limit.Scope.Precedence()) {
			primary = cand
		}
	}

	fulfilled := make([]FulfilledLimit, 0, len(successes))
	for _, res := range successes {
		fulfilled = append(fulfilled, FulfilledLimit{
			Label:         res.limit.Label,
			Key:           res.limit.Key,
			Limit:         res.limit.Limit,
			Count:         res.count,
			WindowSeconds: res.limit.WindowSeconds,
		})
	}

	return &Decision{
		Allowed:       true,
		Limit:         primary.limit.Limit,
		Count:         primary.count,
		WindowSeconds: primary.limit.WindowSeconds,
		Fulfilled:     fulfilled,
	}
}

// Status reports the current in-window usage of every effective limit
// for the context without consuming an event.
func (s *Service) Status(ctx context.Context, req *CheckRequest) ([]LimitStatus, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	limits, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(limits) == 0 {
		return nil, ErrNoPolicy
	}

	statuses := make([]LimitStatus, 0, len(limits))
	for _, el := range limits {
		count, err := s.counter.Status(ctx, el.Key, el.WindowSeconds)
		if err != nil {
			return nil, err
		}
		remaining := el.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, LimitStatus{
			Label:         el.Label,
			Key:           el.Key,
			Limit:         el.Limit,
			Count:         count,
			WindowSeconds: el.WindowSeconds,
			Remaining:     remaining,
		})
	}
	return statuses, nil
}
