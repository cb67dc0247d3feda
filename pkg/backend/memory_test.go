// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemory(t *testing.T) Backend {
	t.Helper()
	b, err := Open(Config{Kind: KindMemory, Dimensions: map[string]int{"docs": 3}})
	require.NoError(t, err)

	ns := b.Namespace("docs")
	err = ns.Upsert(context.Background(), []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Text: "alpha"},
		{ID: "b", Vector: []float32{0, 1, 0}, Text: "beta"},
		{ID: "c", Vector: []float32{0.9, 0.1, 0}, Text: "gamma"},
	}, true)
	require.NoError(t, err)
	return b
}

func TestMemory_QueryRanksByCosine(t *testing.T) {
	b := seededMemory(t)
	ns := b.Namespace("docs")

	results, err := ns.Query(context.Background(), []float32{1, 0, 0}, 2, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Nil(t, results[0].Vector, "vectors excluded unless requested")
}

func TestMemory_QueryIncludeVector(t *testing.T) {
	b := seededMemory(t)

	results, err := b.Namespace("docs").Query(context.Background(), []float32{0, 1, 0}, 1, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []float32{0, 1, 0}, results[0].Vector)
}

func TestMemory_QueryUnknownNamespace(t *testing.T) {
	b := seededMemory(t)

	_, err := b.Namespace("nope").Query(context.Background(), []float32{1, 0, 0}, 1, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_FetchByID(t *testing.T) {
	b := seededMemory(t)
	ns := b.Namespace("docs")

	r, err := ns.FetchByID(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "beta", r.Text)
	assert.Equal(t, []float32{0, 1, 0}, r.Vector)

	_, err = ns.FetchByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_StatsAndDeleteAll(t *testing.T) {
	b := seededMemory(t)
	ns := b.Namespace("docs")
	ctx := context.Background()

	stats, err := ns.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ApproxRowCount)

	require.NoError(t, ns.DeleteAll(ctx))
	_, err = ns.Stats(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpsertDimensionMismatch(t *testing.T) {
	b, err := Open(Config{Kind: KindMemory, Dimensions: map[string]int{"docs": 4}})
	require.NoError(t, err)

	err = b.Namespace("docs").Upsert(context.Background(), []Record{
		{ID: "x", Vector: []float32{1, 0}},
	}, true)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemory_UpsertOverwritesByID(t *testing.T) {
	b := seededMemory(t)
	ns := b.Namespace("docs")
	ctx := context.Background()

	err := ns.Upsert(ctx, []Record{{ID: "a", Vector: []float32{0, 0, 1}, Text: "replaced"}}, false)
	require.NoError(t, err)

	stats, err := ns.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ApproxRowCount)

	r, err := ns.FetchByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "replaced", r.Text)
}

func TestMemory_ConcurrentReadersAndWriters(t *testing.T) {
	b := seededMemory(t)
	ns := b.Namespace("docs")
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = ns.Upsert(ctx, []Record{{
					ID:     fmt.Sprintf("w%d-%d", w, i),
					Vector: []float32{1, 0, 0},
				}}, false)
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = ns.Query(ctx, []float32{1, 0, 0}, 5, false)
				_, _ = ns.Stats(ctx)
			}
		}()
	}
	wg.Wait()

	stats, err := ns.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3+4*50), stats.ApproxRowCount)
}

func TestMemory_DoesNotImplementRecallProber(t *testing.T) {
	b := seededMemory(t)
	_, ok := b.(RecallProber)
	assert.False(t, ok)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(Config{Kind: "mystery"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}
