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
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/landvec/core"
)

// upsertBatchSize is the maximum records per upsert call.
const upsertBatchSize = 100

// StoreOptions controls how a batch of embedded segments is written.
type StoreOptions struct {
	// FixedIDs selects deterministic chunk IDs so that re-running the same
	// entity replaces its vectors in place. When false, each write gets a
	// fresh UUID-suffixed ID and never collides with prior runs.
	FixedIDs bool

	// ArticleTitle, when non-empty, switches to the wiki ID scheme:
	// "wiki-{title}-{entityID}-chunk-{index}" with spaces as underscores.
	ArticleTitle string

	// Namespace is the index namespace to write into.
	Namespace string

	// DeleteExisting removes all vectors for the entity before the first
	// upsert, clearing stale chunks from a previous, longer version of the
	// text.
	DeleteExisting bool
}

// Writer stores embedded segments in a vector index under the entity's ID
// scheme. It owns ID computation, metadata sanitization, duplicate-ID
// resolution, and sub-batching.
type Writer struct {
	client Client
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets a custom logger. Default is slog.Default().
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a Writer over the given index client.
func NewWriter(client Client, opts ...WriterOption) (*Writer, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	w := &Writer{
		client: client,
		logger: slog.Default().With("component", "index-writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Store writes the embedded segments for one entity and returns how many
// vectors were stored. IDs are computed per opts; duplicate IDs within the
// batch collapse to the last occurrence, matching the index's own upsert
// semantics. Records are written in sub-batches; a failed sub-batch is
// recorded and the remaining sub-batches still run, with all failures
// joined into the returned error.
func (w *Writer) Store(ctx context.Context, segments []core.EmbeddedSegment, entityID string, opts StoreOptions) (int, error) {
	if entityID == "" {
		return 0, core.ErrEmptyEntityID
	}
	if len(segments) == 0 {
		return 0, nil
	}

	records := w.buildRecords(segments, entityID, opts)

	if opts.DeleteExisting {
		filter := map[string]any{core.KeyLandmarkID: entityID}
		if err := w.client.DeleteByFilter(ctx, filter, opts.Namespace); err != nil {
			return 0, fmt.Errorf("deleting existing vectors for %s: %w", entityID, err)
		}
		w.logger.Debug("deleted existing vectors", "entity_id", entityID, "namespace", opts.Namespace)
	}

	stored := 0
	var errs []error
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		batch := records[start:end]

		if err := w.client.Upsert(ctx, batch, opts.Namespace); err != nil {
			w.logger.Error("upsert sub-batch failed",
				"entity_id", entityID, "offset", start, "size", len(batch), "error", err)
			errs = append(errs, fmt.Errorf("upsert at offset %d: %w", start, err))
			continue
		}
		stored += len(batch)
	}

	if len(errs) > 0 {
		return stored, errors.Join(errs...)
	}

	w.logger.Info("stored vectors",
		"entity_id", entityID, "count", stored, "namespace", opts.Namespace)
	return stored, nil
}

// buildRecords computes IDs and sanitized metadata, collapsing duplicate IDs
// to the last occurrence while preserving first-seen order.
func (w *Writer) buildRecords(segments []core.EmbeddedSegment, entityID string, opts StoreOptions) []core.VectorRecord {
	order := make([]string, 0, len(segments))
	byID := make(map[string]core.VectorRecord, len(segments))

	for _, seg := range segments {
		id := w.recordID(entityID, seg.Index, opts)

		metadata := SanitizeMetadata(seg.Metadata, w.logger)
		metadata[core.KeyLandmarkID] = entityID
		metadata[core.KeyChunkIndex] = seg.Index
		metadata[core.KeyTotalChunks] = seg.TotalSegments
		if opts.ArticleTitle != "" {
			metadata[core.KeyArticleTitle] = opts.ArticleTitle
		}

		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = core.VectorRecord{ID: id, Values: seg.Vector, Metadata: metadata}
	}

	if len(order) < len(segments) {
		w.logger.Warn("duplicate chunk IDs collapsed",
			"entity_id", entityID, "segments", len(segments), "records", len(order))
	}

	records := make([]core.VectorRecord, len(order))
	for i, id := range order {
		records[i] = byID[id]
	}
	return records
}

func (w *Writer) recordID(entityID string, index int, opts StoreOptions) string {
	switch {
	case opts.ArticleTitle != "":
		return core.WikiChunkID(opts.ArticleTitle, entityID, index)
	case opts.FixedIDs:
		return core.ChunkID(entityID, index)
	default:
		return core.EphemeralChunkID(entityID, index)
	}
}
