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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"math/rand"
	"sort"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/vectorbench/pkg/vector"
)

// rescoreFactor sizes the candidate pool the approximate search rescores:
// topK * rescoreFactor sketch-nearest candidates get an exact cosine pass.
const rescoreFactor = 4

// defaultProbeSeed keeps recall probes reproducible when no seed is set.
const defaultProbeSeed = 1257894000

// badgerBackend persists records in Badger and serves queries from a flat
// in-memory index rebuilt at open. The approximate search path scores a
// 64-bit sign sketch first and rescores the best candidates exactly; the
// exhaustive path scores every record. Having both in one adapter is what
// makes it the RecallProber.
type badgerBackend struct {
	db     *badger.DB
	dims   map[string]int
	logger *slog.Logger

	mu      sync.RWMutex
	indexes map[string]*flatIndex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// storedRecord is the on-disk value format.
type storedRecord struct {
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
}

func openBadger(cfg Config) (*badgerBackend, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: badger backend requires a data directory", ErrPermanent)
	}

	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", cfg.DataDir, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = defaultProbeSeed
	}

	b := &badgerBackend{
		db:      db,
		dims:    cfg.Dimensions,
		logger:  cfg.Logger,
		indexes: make(map[string]*flatIndex),
		rng:     rand.New(rand.NewSource(seed)),
	}
	if err := b.rebuildIndexes(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// rebuildIndexes scans the whole store once and reconstructs the per
// namespace indexes. Runs at open only.
func (b *badgerBackend) rebuildIndexes() error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("ns/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			ns, id, ok := splitKey(string(item.Key()))
			if !ok {
				continue
			}
			var rec storedRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				b.logger.Warn("skipping undecodable record",
					slog.String("key", string(item.Key())),
					slog.String("error", err.Error()),
				)
				continue
			}
			b.index(ns).add(id, rec.Vector, rec.Text)
		}
		return nil
	})
}

func recordKey(namespace, id string) []byte {
	return []byte("ns/" + namespace + "/" + id)
}

func splitKey(key string) (namespace, id string, ok bool) {
	rest, found := strings.CutPrefix(key, "ns/")
	if !found {
		return "", "", false
	}
	namespace, id, found = strings.Cut(rest, "/")
	if !found || namespace == "" || id == "" {
		return "", "", false
	}
	return namespace, id, true
}

// index returns the namespace's index, creating it if absent. Callers must
// not hold b.mu.
func (b *badgerBackend) index(name string) *flatIndex {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexes[name]
	if idx == nil {
		idx = newFlatIndex()
		b.indexes[name] = idx
	}
	return idx
}

// lookup returns the namespace's index, or nil if nothing was ever written.
func (b *badgerBackend) lookup(name string) *flatIndex {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexes[name]
}

func (b *badgerBackend) Kind() Kind { return KindBadger }

func (b *badgerBackend) Close() error { return b.db.Close() }

func (b *badgerBackend) Namespace(name string) Namespace {
	return &badgerNamespace{backend: b, name: name}
}

// ProbeRecall implements RecallProber.
//
// Description:
//
//	Generates numQueries random unit vectors of the namespace's
//	dimensionality and runs each through the approximate (sketch +
//	rescore) and the exhaustive search path, counting the overlap of
//	their top-k result sets. The reported counts are the number of
//	candidates each path actually scored.
func (b *badgerBackend) ProbeRecall(ctx context.Context, namespace string, topK, numQueries int) (*RecallSample, error) {
	idx := b.lookup(namespace)
	if idx == nil || idx.len() == 0 {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, namespace)
	}
	if topK <= 0 || numQueries <= 0 {
		return nil, fmt.Errorf("%w: topK and numQueries must be positive", ErrPermanent)
	}

	dim := b.dims[namespace]
	if dim == 0 {
		dim = idx.dim()
	}

	var sumRecall, sumANN, sumExhaustive float64
	for q := 0; q < numQueries; q++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b.rngMu.Lock()
		query := vector.RandomUnit(b.rng, dim)
		b.rngMu.Unlock()

		ann, annScored := idx.searchApprox(query, topK)
		exact, exactScored := idx.searchExact(query, topK)

		overlap := 0
		truth := make(map[string]bool, len(exact))
		for _, h := range exact {
			truth[h.id] = true
		}
		for _, h := range ann {
			if truth[h.id] {
				overlap++
			}
		}
		if len(exact) > 0 {
			sumRecall += float64(overlap) / float64(len(exact))
		}
		sumANN += float64(annScored)
		sumExhaustive += float64(exactScored)
	}

	n := float64(numQueries)
	return &RecallSample{
		AvgRecall:          sumRecall / n,
		AvgANNCount:        sumANN / n,
		AvgExhaustiveCount: sumExhaustive / n,
	}, nil
}

type badgerNamespace struct {
	backend *badgerBackend
	name    string
}

func (n *badgerNamespace) Upsert(ctx context.Context, records []Record, firstBatch bool) error {
	b := n.backend
	if firstBatch {
		// The index side effect localizes here: first write of a seeding
		// run registers the namespace so later queries see it even before
		// a restart rebuild.
		b.index(n.name)
		b.logger.Debug("badger namespace registered", slog.String("namespace", n.name))
	}

	dim := b.dims[n.name]
	for _, rec := range records {
		if dim > 0 && len(rec.Vector) != dim {
			return fmt.Errorf("%w: namespace %s expects %d, got %d",
				ErrDimensionMismatch, n.name, dim, len(rec.Vector))
		}
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			val, err := json.Marshal(storedRecord{Vector: rec.Vector, Text: rec.Text})
			if err != nil {
				return err
			}
			if err := txn.Set(recordKey(n.name, rec.ID), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger upsert: %w", err)
	}

	idx := b.index(n.name)
	for _, rec := range records {
		idx.add(rec.ID, rec.Vector, rec.Text)
	}
	return nil
}

func (n *badgerNamespace) Query(ctx context.Context, vec []float32, topK int, includeVector bool) ([]Result, error) {
	idx := n.backend.lookup(n.name)
	if idx == nil || idx.len() == 0 {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, n.name)
	}

	hits, _ := idx.searchApprox(vec, topK)
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		r := Result{ID: h.id, Score: h.score, Text: h.text}
		if includeVector {
			r.Vector = h.vec
		}
		results = append(results, r)
	}
	return results, nil
}

func (n *badgerNamespace) FetchByID(ctx context.Context, id string) (*Result, error) {
	var rec storedRecord
	err := n.backend.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(n.name, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("badger fetch: %w", err)
	}
	return &Result{ID: id, Vector: rec.Vector, Text: rec.Text}, nil
}

func (n *badgerNamespace) Stats(ctx context.Context) (*NamespaceStats, error) {
	idx := n.backend.lookup(n.name)
	if idx == nil {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, n.name)
	}
	return &NamespaceStats{ApproxRowCount: int64(idx.len())}, nil
}

func (n *badgerNamespace) DeleteAll(ctx context.Context) error {
	b := n.backend
	if err := b.db.DropPrefix([]byte("ns/" + n.name + "/")); err != nil {
		return fmt.Errorf("badger delete all: %w", err)
	}
	b.mu.Lock()
	delete(b.indexes, n.name)
	b.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------
// Flat index
// -----------------------------------------------------------------------------

// flatIndex is a flat vector index with a compressed pre-filter: each
// vector carries a 64-bit sign sketch, approximate search ranks by sketch
// hamming distance and rescores only the best pool exactly.
type flatIndex struct {
	mu       sync.RWMutex
	ids      []string
	vecs     [][]float32
	texts    []string
	sketches []uint64
	byID     map[string]int
}

type hit struct {
	id    string
	score float32
	text  string
	vec   []float32
}

func newFlatIndex() *flatIndex {
	return &flatIndex{byID: make(map[string]int)}
}

func (f *flatIndex) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

func (f *flatIndex) dim() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vecs) == 0 {
		return 0
	}
	return len(f.vecs[0])
}

func (f *flatIndex) add(id string, vec []float32, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.byID[id]; ok {
		f.vecs[i] = vec
		f.texts[i] = text
		f.sketches[i] = sketch64(vec)
		return
	}
	f.byID[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vecs = append(f.vecs, vec)
	f.texts = append(f.texts, text)
	f.sketches = append(f.sketches, sketch64(vec))
}

// searchExact scores every vector. Returns the top-k hits and the number
// of candidates scored.
func (f *flatIndex) searchExact(query []float32, topK int) ([]hit, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	hits := make([]hit, 0, len(f.ids))
	for i, id := range f.ids {
		hits = append(hits, hit{
			id:    id,
			score: vector.Cosine(query, f.vecs[i]),
			text:  f.texts[i],
			vec:   f.vecs[i],
		})
	}
	sortHits(hits)
	scored := len(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, scored
}

// searchApprox ranks by sketch hamming distance, then rescores the best
// topK*rescoreFactor candidates exactly.
func (f *flatIndex) searchApprox(query []float32, topK int) ([]hit, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	qs := sketch64(query)
	type candidate struct {
		idx  int
		dist int
	}
	cands := make([]candidate, len(f.ids))
	for i := range f.ids {
		cands[i] = candidate{idx: i, dist: bits.OnesCount64(qs ^ f.sketches[i])}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].dist < cands[j].dist
	})

	pool := topK * rescoreFactor
	if pool > len(cands) {
		pool = len(cands)
	}

	hits := make([]hit, 0, pool)
	for _, c := range cands[:pool] {
		hits = append(hits, hit{
			id:    f.ids[c.idx],
			score: vector.Cosine(query, f.vecs[c.idx]),
			text:  f.texts[c.idx],
			vec:   f.vecs[c.idx],
		})
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, pool
}

func sortHits(hits []hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
}

// sketch64 packs the sign bits of the first 64 components into a word.
// Vectors shorter than 64 dims leave the high bits zero.
func sketch64(v []float32) uint64 {
	var s uint64
	n := len(v)
	if n > 64 {
		n = 64
	}
	for i := 0; i < n; i++ {
		if v[i] > 0 {
			s |= 1 << uint(i)
		}
	}
	return s
}
