// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pool distributes a fixed number of work units across a bounded
// set of workers.
//
// Workers claim indices from a shared atomic counter, so no two workers
// ever process the same unit and no unit is skipped. The pool gives no
// ordering guarantee: results are appended in completion order, not
// submission order. There is no mid-run cancellation; once started, the
// pool drains every index.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Run executes total units of work across concurrency workers and returns
// one result per unit.
//
// Description:
//
//	Each worker repeatedly claims the next unclaimed index in
//	[0, total) and invokes unit with it. Failures inside a unit must be
//	encoded into the result value (e.g. a Measurement with Success=false);
//	the pool itself never retries and never aborts early. Run returns once
//	every index has been attempted exactly once.
//
// Inputs:
//   - ctx: Passed through to every unit. The pool does not watch it; units
//     already claimed always execute.
//   - total: Number of work units. Non-positive returns nil.
//   - concurrency: Worker count. Clamped to [1, total].
//   - unit: One unit of work. Must not panic.
//
// Outputs:
//   - []T: Exactly total results, in nondeterministic order.
//
// Thread Safety: Safe for concurrent use; all state is per-call.
func Run[T any](ctx context.Context, total, concurrency int, unit func(ctx context.Context, index int) T) []T {
	if total <= 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > total {
		concurrency = total
	}

	var (
		next    atomic.Int64
		mu      sync.Mutex
		results = make([]T, 0, total)
	)

	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= total {
					return nil
				}
				r := unit(ctx, i)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		})
	}

	// Workers only return nil; Wait is for draining, not error collection.
	_ = g.Wait()
	return results
}
