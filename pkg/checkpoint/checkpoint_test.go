// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "recall_checkpoint.json"), nil)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)

	c := Empty()
	c.Append(
		Run{ConfigKey: "docs:10", Namespace: "docs", TopK: 10, Recall: 0.92, ANNCount: 40, ExhaustiveCount: 1000, LatencyMS: 12.5},
		Run{ConfigKey: "docs:10", Namespace: "docs", TopK: 10, Recall: 0.88, ANNCount: 40, ExhaustiveCount: 1000, LatencyMS: 11.0},
	)
	c.MarkCompleted("docs:10")

	require.NoError(t, store.Save(c))

	loaded := store.Load()
	assert.Equal(t, c, loaded)
}

func TestStore_LoadMissingReturnsEmpty(t *testing.T) {
	store := testStore(t)

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Empty(t, loaded.CompletedConfigs)
	assert.Empty(t, loaded.RawRuns)
}

func TestStore_LoadCorruptReturnsEmpty(t *testing.T) {
	store := testStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Empty(t, loaded.CompletedConfigs)
}

func TestStore_SaveOverwritesCompletely(t *testing.T) {
	store := testStore(t)

	first := Empty()
	first.MarkCompleted("a:1")
	first.MarkCompleted("b:2")
	require.NoError(t, store.Save(first))

	second := Empty()
	second.MarkCompleted("c:3")
	require.NoError(t, store.Save(second))

	loaded := store.Load()
	assert.Equal(t, []string{"c:3"}, loaded.CompletedConfigs)
}

func TestStore_Clear(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(Empty()))
	require.NoError(t, store.Clear())

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))

	// Clearing an absent checkpoint is fine.
	require.NoError(t, store.Clear())
}

func TestStore_SaveCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ckpt.json")
	store := NewStore(path, nil)

	require.NoError(t, store.Save(Empty()))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCheckpoint_MarkCompletedIdempotent(t *testing.T) {
	c := Empty()
	c.MarkCompleted("x:5")
	c.MarkCompleted("x:5")

	assert.Equal(t, []string{"x:5"}, c.CompletedConfigs)
	assert.True(t, c.Completed("x:5"))
	assert.False(t, c.Completed("y:5"))
}

func TestCheckpoint_RunsFor(t *testing.T) {
	c := Empty()
	c.Append(
		Run{ConfigKey: "a:1", Recall: 0.9},
		Run{ConfigKey: "b:1", Recall: 0.5},
		Run{ConfigKey: "a:1", Recall: 0.95},
	)

	runs := c.RunsFor("a:1")
	require.Len(t, runs, 2)
	assert.Equal(t, 0.9, runs[0].Recall)
	assert.Equal(t, 0.95, runs[1].Recall)
	assert.Empty(t, c.RunsFor("missing:0"))
}
