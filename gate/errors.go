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

import "errors"

// ErrInvalidRequest is returned when the request context is missing a
// required identifier (userId or modelId).
var ErrInvalidRequest = errors.New("userId and modelId are required")

// ErrCatalogUnavailable is returned when a catalog lookup or the
// applicable-policy query fails for infrastructure reasons.
var ErrCatalogUnavailable = errors.New("policy catalog unavailable")

// ErrNoPolicy is returned when no catalog policy matches the request
// context. Deployments that want admit-by-default must seed an enabled
// GLOBAL policy instead.
var ErrNoPolicy = errors.New("no policy resolved")

// ErrStoreUnavailable is returned when a counting-store command fails
// for any reason other than an optimistic-transaction conflict.
var ErrStoreUnavailable = errors.New("counting store unavailable")

// ErrStoreContention is returned when an admission could not commit
// within the retry budget because of concurrent writers on the same key.
var ErrStoreContention = errors.New("counting store contention: retries exhausted")

// errTxnConflict signals that a watched key changed between the read
// phase and the commit of an optimistic transaction. It never escapes
// the sliding-window counter, which retries on it.
var errTxnConflict = errors.New("counting store: transaction conflict")
