// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backend defines the vector-store capability surface the
// benchmark orchestrators run against, and the three concrete adapters
// behind it: a remote Weaviate instance, a local Badger-backed store, and
// an in-memory store.
//
// Orchestrators hold only the Backend and Namespace interfaces. Which
// adapter is active is decided exactly once, by Open, at startup; nothing
// downstream branches on the variant.
package backend

import (
	"context"
)

// Kind identifies one of the closed set of backend variants.
type Kind string

const (
	// KindWeaviate talks to a remote Weaviate instance over HTTP.
	KindWeaviate Kind = "weaviate"
	// KindBadger stores vectors in a local Badger database with a flat
	// in-memory search index.
	KindBadger Kind = "badger"
	// KindMemory keeps everything in process memory. Used for tests and
	// quick smoke runs.
	KindMemory Kind = "memory"
)

// Record is one vector plus its payload, as written by the upsert path.
type Record struct {
	// ID is the record identifier, unique within a namespace.
	ID string

	// Vector is the embedding. Length must match the namespace dimension.
	Vector []float32

	// Text is the record payload.
	Text string
}

// Result is one search hit or fetched record.
type Result struct {
	// ID is the record identifier.
	ID string

	// Score is the similarity to the query vector (higher is closer).
	// Zero for FetchByID results.
	Score float32

	// Vector is populated only when the caller asked for vectors.
	Vector []float32

	// Text is the record payload.
	Text string
}

// NamespaceStats is the cheap metadata a namespace exposes.
type NamespaceStats struct {
	// ApproxRowCount is the backend's estimate of stored records. Exact
	// for the local adapters, approximate for remote ones.
	ApproxRowCount int64
}

// RecallSample is the outcome of one recall-probe invocation: the backend
// evaluated a batch of synthetic queries against both its ANN index and an
// exhaustive scan, and reports the averages.
type RecallSample struct {
	// AvgRecall is the mean overlap fraction between ANN and exhaustive
	// top-k results, in [0, 1].
	AvgRecall float64

	// AvgANNCount is the mean number of candidates the ANN path scored.
	AvgANNCount float64

	// AvgExhaustiveCount is the mean number of candidates the exhaustive
	// path scored.
	AvgExhaustiveCount float64
}

// Namespace is one logical vector collection within a backend.
//
// All methods take a context because every implementation but memory does
// network or disk I/O.
type Namespace interface {
	// Upsert writes records. firstBatch signals that this is the first
	// write of a seeding run, letting the adapter perform schema or index
	// setup side effects exactly once.
	Upsert(ctx context.Context, records []Record, firstBatch bool) error

	// Query returns the topK nearest records to vector, best first.
	// Vectors are included in results only when includeVector is set.
	// Returns ErrNotFound (wrapped) when the namespace does not exist.
	Query(ctx context.Context, vector []float32, topK int, includeVector bool) ([]Result, error)

	// FetchByID returns the record with the given ID, or ErrNotFound.
	FetchByID(ctx context.Context, id string) (*Result, error)

	// Stats returns cheap namespace metadata.
	Stats(ctx context.Context) (*NamespaceStats, error)

	// DeleteAll removes every record in the namespace.
	DeleteAll(ctx context.Context) error
}

// Backend is a vector store holding named namespaces.
type Backend interface {
	// Namespace returns a handle for the named collection. The handle is
	// cheap; no I/O happens until an operation is invoked on it.
	Namespace(name string) Namespace

	// Kind reports which variant this is. For logging and artifact
	// metadata only; orchestrators never branch on it.
	Kind() Kind

	// Close releases the backend's resources.
	Close() error
}

// RecallProber is the optional capability behind the recall benchmark.
//
// Only the Badger adapter implements it: measuring recall requires an
// exhaustive ground-truth search next to the ANN index, which remote
// backends do not expose. The recall orchestrator rejects backends that
// lack this interface at construction time.
type RecallProber interface {
	// ProbeRecall generates numQueries synthetic query vectors for the
	// namespace, runs each through both the ANN and the exhaustive search
	// path, and returns the averaged overlap.
	ProbeRecall(ctx context.Context, namespace string, topK, numQueries int) (*RecallSample, error)
}
