// Package vectorindex is an in-process exact nearest-neighbour index over
// float32 embeddings using Euclidean (L2) distance.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type Entry struct {
	ID     uint
	Vector []float32
}

type Result struct {
	ID       uint
	Distance float64
}

// Index is safe for concurrent searches while entries are added or
// replaced.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry
}

func New(dimensions int) *Index {
	return &Index{dim: dimensions}
}

func (x *Index) Dimensions() int {
	return x.dim
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Load replaces the whole index. Entries with the wrong dimension are
// rejected before anything is swapped in.
func (x *Index) Load(entries []Entry) error {
	for _, e := range entries {
		if err := x.check(e); err != nil {
			return err
		}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)

	x.mu.Lock()
	x.entries = cp
	x.mu.Unlock()
	return nil
}

func (x *Index) Add(entries ...Entry) error {
	for _, e := range entries {
		if err := x.check(e); err != nil {
			return err
		}
	}
	x.mu.Lock()
	x.entries = append(x.entries, entries...)
	x.mu.Unlock()
	return nil
}

// Search returns up to k entries ordered by ascending distance, ties by id.
func (x *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	results := make([]Result, 0, len(x.entries))
	for _, e := range x.entries {
		results = append(results, Result{ID: e.ID, Distance: l2(query, e.Vector)})
	}
	x.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (x *Index) check(e Entry) error {
	if len(e.Vector) != x.dim {
		return fmt.Errorf("%w: entry %d has %d, index has %d", ErrDimensionMismatch, e.ID, len(e.Vector), x.dim)
	}
	return nil
}

// Fits reports ErrDimensionMismatch when vec could not be added.
func (x *Index) Fits(vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), x.dim)
	}
	return nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
