// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/AleutianAI/vectorbench/pkg/backend"
	"github.com/AleutianAI/vectorbench/pkg/vector"
)

// probeVector obtains one representative query vector for a namespace:
// a random unit vector is queried top-1 with vectors included, and the
// stored vector that comes back is reused for every measured call. This
// keeps measured queries aimed at data that actually exists instead of
// an arbitrary point in the space.
//
// Fails when the namespace is absent or empty; callers treat that as a
// skip, not a fatal error.
func probeVector(ctx context.Context, ns backend.Namespace, dim int, rng *rand.Rand) ([]float32, error) {
	seed := vector.RandomUnit(rng, dim)
	results, err := ns.Query(ctx, seed, 1, true)
	if err != nil {
		return nil, fmt.Errorf("probe query: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("probe query: %w: no records", backend.ErrNotFound)
	}
	if len(results[0].Vector) == 0 {
		// Backend did not return stored vectors; the random probe is
		// still a valid query point of the right dimensionality.
		return seed, nil
	}
	return results[0].Vector, nil
}
