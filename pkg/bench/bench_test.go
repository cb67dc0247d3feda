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
	"sync"

	"github.com/AleutianAI/vectorbench/pkg/backend"
)

// fakeBackend is an in-process stub whose namespaces are scripted per
// test. It deliberately does not implement backend.RecallProber; the
// probing variant below embeds it and adds that.
type fakeBackend struct {
	kind       backend.Kind
	mu         sync.Mutex
	namespaces map[string]*fakeNamespace
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		kind:       backend.KindMemory,
		namespaces: make(map[string]*fakeNamespace),
	}
}

func (f *fakeBackend) namespace(name string) *fakeNamespace {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns, ok := f.namespaces[name]
	if !ok {
		ns = &fakeNamespace{name: name}
		f.namespaces[name] = ns
	}
	return ns
}

func (f *fakeBackend) Namespace(name string) backend.Namespace { return f.namespace(name) }
func (f *fakeBackend) Kind() backend.Kind                      { return f.kind }
func (f *fakeBackend) Close() error                            { return nil }

type upsertCall struct {
	count      int
	firstBatch bool
}

type fakeNamespace struct {
	name string

	mu sync.Mutex

	// queryErr fails Query calls; when failAfter > 0 the first
	// failAfter calls still succeed, so probes can pass while
	// measured calls fail.
	queryErr   error
	failAfter  int
	queryCalls int

	// upsertErr fails every Upsert call; transientUpserts fails the
	// first N calls with a 503 and then lets subsequent calls through.
	upsertErr        error
	transientUpserts int
	upsertAttempts   int
	upsertCalls      []upsertCall
}

func (n *fakeNamespace) Upsert(_ context.Context, records []backend.Record, firstBatch bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upsertAttempts++
	if n.upsertErr != nil {
		return n.upsertErr
	}
	if n.transientUpserts > 0 {
		n.transientUpserts--
		return &backend.StatusError{Code: 503, Message: "overloaded"}
	}
	n.upsertCalls = append(n.upsertCalls, upsertCall{count: len(records), firstBatch: firstBatch})
	return nil
}

func (n *fakeNamespace) Query(_ context.Context, vec []float32, topK int, includeVector bool) ([]backend.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queryCalls++
	if n.queryErr != nil && n.queryCalls > n.failAfter {
		return nil, n.queryErr
	}
	r := backend.Result{ID: "r1", Score: 0.9, Text: "stub"}
	if includeVector {
		r.Vector = make([]float32, len(vec))
		copy(r.Vector, vec)
	}
	return []backend.Result{r}, nil
}

func (n *fakeNamespace) FetchByID(_ context.Context, id string) (*backend.Result, error) {
	return nil, fmt.Errorf("%w: %s", backend.ErrNotFound, id)
}

func (n *fakeNamespace) Stats(_ context.Context) (*backend.NamespaceStats, error) {
	return &backend.NamespaceStats{ApproxRowCount: 1}, nil
}

func (n *fakeNamespace) DeleteAll(_ context.Context) error { return nil }

func (n *fakeNamespace) totalQueries() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queryCalls
}

// fakeProbeBackend adds a scripted recall probe on top of fakeBackend.
type fakeProbeBackend struct {
	*fakeBackend

	pmu    sync.Mutex
	calls  map[string]int
	errFor map[string]error
	sample backend.RecallSample
}

func newFakeProbeBackend() *fakeProbeBackend {
	return &fakeProbeBackend{
		fakeBackend: newFakeBackend(),
		calls:       make(map[string]int),
		errFor:      make(map[string]error),
		sample: backend.RecallSample{
			AvgRecall:          0.95,
			AvgANNCount:        40,
			AvgExhaustiveCount: 200,
		},
	}
}

func (f *fakeProbeBackend) ProbeRecall(_ context.Context, namespace string, topK, _ int) (*backend.RecallSample, error) {
	key := fmt.Sprintf("%s:%d", namespace, topK)
	f.pmu.Lock()
	defer f.pmu.Unlock()
	f.calls[key]++
	if err := f.errFor[key]; err != nil {
		return nil, err
	}
	s := f.sample
	return &s, nil
}

func (f *fakeProbeBackend) callsFor(key string) int {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	return f.calls[key]
}
