// Copyright 2025 Poiesic Systems
//
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

package badger

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/landvec/core"
	"github.com/poiesic/landvec/index"
)

const vectorKeyPrefix = "vec"

// Store is a local vector index on BadgerDB. It holds full records keyed by
// namespace and ID, matches filters by scanning, and answers similarity
// queries with a brute-force cosine pass. It is meant for development and
// modest corpora, not for large-scale serving.
type Store struct {
	backend *Backend
}

var _ index.Client = (*Store)(nil)

// NewStore creates a vector store over an open backend.
func NewStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

// Open opens a store at the given path. An empty path opens an in-memory
// store that vanishes on Close.
func Open(path string) (*Store, error) {
	backend, err := OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

func makeVectorKey(namespace, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorKeyPrefix, namespace, id))
}

func makeNamespacePrefix(namespace string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorKeyPrefix, namespace))
}

// Upsert inserts or replaces records by ID.
func (s *Store) Upsert(ctx context.Context, records []core.VectorRecord, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, rec := range records {
			if rec.ID == "" {
				return core.ErrEmptyVectorID
			}
			if err := tx.Set(makeVectorKey(namespace, rec.ID), MarshalVectorRecord(&rec)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// DeleteByID removes the records with the given IDs. Missing IDs are not an
// error.
func (s *Store) DeleteByID(ctx context.Context, ids []string, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeVectorKey(namespace, id)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// DeleteByFilter removes every record whose metadata matches all filter
// pairs exactly.
func (s *Store) DeleteByFilter(ctx context.Context, filter map[string]any, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := s.scanNamespace(namespace, func(key []byte, record *core.VectorRecord) error {
		if matchesFilter(record.Metadata, filter) {
			keys = append(keys, slices.Clone(key))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// Query returns the topK records most similar to the vector, by cosine
// similarity, optionally restricted by filter.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter map[string]any, namespace string) ([]index.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}

	var matches []index.Match
	err := s.scanNamespace(namespace, func(_ []byte, record *core.VectorRecord) error {
		if !matchesFilter(record.Metadata, filter) {
			return nil
		}
		matches = append(matches, index.Match{
			ID:       record.ID,
			Score:    cosineSimilarity(vector, record.Values),
			Metadata: record.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b index.Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// FetchByID retrieves one record, or index.ErrNotFound.
func (s *Store) FetchByID(ctx context.Context, id string, namespace string) (*core.VectorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *core.VectorRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(namespace, id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("vector %q: %w", id, index.ErrNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = UnmarshalVectorRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Stats counts vectors per namespace and reports the stored dimension.
func (s *Store) Stats(ctx context.Context) (*index.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &index.Stats{Namespaces: make(map[string]int)}
	prefix := []byte(vectorKeyPrefix + ":")

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := string(item.Key())

			rest := strings.TrimPrefix(key, string(prefix))
			ns, _, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}
			stats.Namespaces[ns]++
			stats.TotalVectorCount++

			if stats.Dimension == 0 {
				err := item.Value(func(val []byte) error {
					record, err := UnmarshalVectorRecord(val)
					if err != nil {
						return err
					}
					stats.Dimension = len(record.Values)
					return nil
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) scanNamespace(namespace string, fn func(key []byte, record *core.VectorRecord) error) error {
	prefix := makeNamespacePrefix(namespace)

	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var record *core.VectorRecord
			err := item.Value(func(val []byte) error {
				var err error
				record, err = UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(item.Key(), record); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// matchesFilter reports whether metadata satisfies every filter pair.
// Numeric values compare by magnitude since ints round-trip as int64.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if as, aok := a.([]string); aok {
		bs, bok := b.([]string)
		return bok && slices.Equal(as, bs)
	}
	if a == nil || b == nil {
		return a == b
	}
	// An == on interface values panics when both sides hold the same
	// uncomparable dynamic type.
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func cosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
