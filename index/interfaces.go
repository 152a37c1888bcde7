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

package index

import (
	"context"

	"github.com/poiesic/landvec/core"
)

// Match is a single query result: a stored vector's identity, its similarity
// score, and the metadata it was stored with.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Stats summarizes the state of an index.
type Stats struct {
	Dimension        int
	TotalVectorCount int
	Namespaces       map[string]int
}

// Client is the contract every vector index backend satisfies. Writes are
// upserts: storing a record whose ID already exists replaces it in place.
type Client interface {
	// Upsert inserts or replaces records by ID in the given namespace.
	Upsert(ctx context.Context, records []core.VectorRecord, namespace string) error

	// DeleteByID removes the records with the given IDs. Missing IDs are
	// not an error.
	DeleteByID(ctx context.Context, ids []string, namespace string) error

	// DeleteByFilter removes every record whose metadata matches all
	// key/value pairs in filter exactly.
	DeleteByFilter(ctx context.Context, filter map[string]any, namespace string) error

	// Query returns the topK records most similar to the vector, optionally
	// restricted to records matching filter. Results are ordered by
	// descending score.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any, namespace string) ([]Match, error)

	// FetchByID retrieves a single record. Returns ErrNotFound if absent.
	FetchByID(ctx context.Context, id string, namespace string) (*core.VectorRecord, error)

	// Stats reports vector counts and the index dimension.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the backend's resources.
	Close() error
}
