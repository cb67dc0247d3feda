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
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/vectorbench/pkg/vector"
)

// memoryBackend is the in-process variant: exact cosine search over a map.
// It exists for tests and quick smoke runs; it does not implement
// RecallProber because its search is already exhaustive.
type memoryBackend struct {
	mu     sync.RWMutex
	spaces map[string]*memorySpace
	dims   map[string]int
	logger *slog.Logger
}

type memorySpace struct {
	dim     int
	records map[string]Record
	order   []string // insertion order, for deterministic iteration
}

func openMemory(cfg Config) *memoryBackend {
	return &memoryBackend{
		spaces: make(map[string]*memorySpace),
		dims:   cfg.Dimensions,
		logger: cfg.Logger,
	}
}

func (b *memoryBackend) Kind() Kind { return KindMemory }

func (b *memoryBackend) Close() error { return nil }

func (b *memoryBackend) Namespace(name string) Namespace {
	return &memoryNamespace{backend: b, name: name}
}

type memoryNamespace struct {
	backend *memoryBackend
	name    string
}

func (n *memoryNamespace) Upsert(_ context.Context, records []Record, firstBatch bool) error {
	b := n.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	sp := b.spaces[n.name]
	if sp == nil {
		dim := b.dims[n.name]
		sp = &memorySpace{dim: dim, records: make(map[string]Record)}
		b.spaces[n.name] = sp
	}
	if firstBatch {
		b.logger.Debug("memory namespace initialized", slog.String("namespace", n.name))
	}

	for _, rec := range records {
		if sp.dim > 0 && len(rec.Vector) != sp.dim {
			return fmt.Errorf("%w: namespace %s expects %d, got %d",
				ErrDimensionMismatch, n.name, sp.dim, len(rec.Vector))
		}
		if _, exists := sp.records[rec.ID]; !exists {
			sp.order = append(sp.order, rec.ID)
		}
		sp.records[rec.ID] = rec
	}
	return nil
}

func (n *memoryNamespace) Query(_ context.Context, vec []float32, topK int, includeVector bool) ([]Result, error) {
	n.backend.mu.RLock()
	defer n.backend.mu.RUnlock()

	sp := n.backend.spaces[n.name]
	if sp == nil || len(sp.records) == 0 {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, n.name)
	}

	results := make([]Result, 0, len(sp.order))
	for _, id := range sp.order {
		rec := sp.records[id]
		r := Result{
			ID:    rec.ID,
			Score: vector.Cosine(vec, rec.Vector),
			Text:  rec.Text,
		}
		if includeVector {
			r.Vector = rec.Vector
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (n *memoryNamespace) FetchByID(_ context.Context, id string) (*Result, error) {
	n.backend.mu.RLock()
	defer n.backend.mu.RUnlock()

	sp := n.backend.spaces[n.name]
	if sp == nil {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, n.name)
	}

	rec, ok := sp.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	return &Result{ID: rec.ID, Vector: rec.Vector, Text: rec.Text}, nil
}

func (n *memoryNamespace) Stats(_ context.Context) (*NamespaceStats, error) {
	n.backend.mu.RLock()
	defer n.backend.mu.RUnlock()

	sp := n.backend.spaces[n.name]
	if sp == nil {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, n.name)
	}
	return &NamespaceStats{ApproxRowCount: int64(len(sp.records))}, nil
}

func (n *memoryNamespace) DeleteAll(_ context.Context) error {
	b := n.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.spaces, n.name)
	return nil
}
