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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/landvec/chunk"
	"github.com/poiesic/landvec/core"
	"github.com/poiesic/landvec/embed"
	"github.com/poiesic/landvec/enrich"
	"github.com/poiesic/landvec/index"
	"github.com/poiesic/landvec/record"
)

// Defaults for the token chunker when no chunk params are configured.
const (
	DefaultMaxTokens     = 1000
	DefaultOverlapTokens = 200
)

// Deps holds the pipeline collaborators the orchestrator drives.
type Deps struct {
	Texts   record.SourceTextProvider
	Records record.EntityRecordProvider

	// Chunker is required unless WithParagraphChunker supplies the splitter.
	Chunker *chunk.TokenChunker

	Enricher  *enrich.Enricher
	Generator *embed.Generator
	Writer    *index.Writer

	// Index is consulted directly for skip-unchanged fingerprint checks.
	// Optional; without it skip-unchanged is disabled.
	Index index.Client
}

// Orchestrator runs entities through fetch, chunk, enrich, embed, and store,
// producing one Outcome per entity. Batches run on a bounded worker pool;
// one entity's failure never stops the rest.
type Orchestrator struct {
	deps Deps

	pool           *ants.Pool
	logger         *slog.Logger
	namespace      string
	sourceType     string
	maxTokens      int
	overlapTokens  int
	deleteExisting bool
	skipUnchanged  bool

	// split turns source text into segments. Defaults to the token chunker
	// with the configured window; WithParagraphChunker replaces it.
	split func(text string) ([]core.Segment, error)

	// titleFor, when set, switches an entity to the wiki ID scheme using
	// the returned article title. An empty return keeps the default scheme.
	titleFor func(entityID string) string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size for batch processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithNamespace sets the index namespace written to.
func WithNamespace(namespace string) Option {
	return func(o *Orchestrator) error {
		o.namespace = namespace
		return nil
	}
}

// WithSourceType sets the source_type stamped on every segment.
// Default is "pdf".
func WithSourceType(sourceType string) Option {
	return func(o *Orchestrator) error {
		if sourceType != "" {
			o.sourceType = sourceType
		}
		return nil
	}
}

// WithChunkParams sets the token window and overlap used for splitting.
func WithChunkParams(maxTokens, overlapTokens int) Option {
	return func(o *Orchestrator) error {
		if maxTokens <= 0 {
			return chunk.ErrInvalidMaxTokens
		}
		if overlapTokens < 0 || overlapTokens >= maxTokens {
			return chunk.ErrInvalidOverlap
		}
		o.maxTokens = maxTokens
		o.overlapTokens = overlapTokens
		return nil
	}
}

// WithParagraphChunker splits on paragraph boundaries with a character
// budget instead of token windows. When set, Deps.Chunker may be nil and
// WithChunkParams has no effect.
func WithParagraphChunker(chunker *chunk.ParagraphChunker) Option {
	return func(o *Orchestrator) error {
		if chunker == nil {
			return ErrChunkerRequired
		}
		o.split = chunker.Chunk
		return nil
	}
}

// WithDeleteExisting clears an entity's previous vectors before each store,
// removing stale chunks left over from a longer prior version of the text.
func WithDeleteExisting(enabled bool) Option {
	return func(o *Orchestrator) error {
		o.deleteExisting = enabled
		return nil
	}
}

// WithSkipUnchanged short-circuits entities whose source text fingerprint
// matches the one stored with their first chunk. Requires Deps.Index.
func WithSkipUnchanged(enabled bool) Option {
	return func(o *Orchestrator) error {
		o.skipUnchanged = enabled
		return nil
	}
}

// WithTitleResolver installs a lookup from entity ID to article title for
// wiki-sourced ingestion. Entities the resolver maps to "" use the default
// ID scheme.
func WithTitleResolver(fn func(entityID string) string) Option {
	return func(o *Orchestrator) error {
		o.titleFor = fn
		return nil
	}
}

// NewOrchestrator creates an ingestion orchestrator.
func NewOrchestrator(deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Texts == nil {
		return nil, ErrTextProviderRequired
	}
	if deps.Generator == nil {
		return nil, ErrGeneratorRequired
	}
	if deps.Writer == nil {
		return nil, ErrWriterRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		deps:          deps,
		pool:          pool,
		logger:        slog.Default().With("component", "ingest"),
		sourceType:    "pdf",
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
	}
	if o.deps.Enricher == nil {
		o.deps.Enricher = enrich.NewEnricher()
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Release()
			return nil, err
		}
	}

	if o.split == nil {
		if deps.Chunker == nil {
			o.Release()
			return nil, ErrChunkerRequired
		}
		o.split = func(text string) ([]core.Segment, error) {
			return o.deps.Chunker.Chunk(text, o.maxTokens, o.overlapTokens)
		}
	}

	if o.skipUnchanged && o.deps.Index == nil {
		o.Release()
		return nil, ErrIndexRequiredForSkip
	}
	return o, nil
}

// ProcessEntity runs one entity through the pipeline.
func (o *Orchestrator) ProcessEntity(ctx context.Context, entityID string) Outcome {
	outcome := Outcome{EntityID: entityID}
	fail := func(stage Stage, err error) Outcome {
		o.logger.Error("entity processing failed",
			"entity_id", entityID, "stage", stage.String(), "error", err)
		outcome.Stage = stage
		outcome.Err = err
		return outcome
	}

	if entityID == "" {
		return fail(StageFetched, core.ErrEmptyEntityID)
	}

	text, err := o.deps.Texts.GetText(ctx, entityID)
	if err != nil {
		return fail(StageFetched, fmt.Errorf("fetching text: %w", err))
	}

	// Empty text is a legitimate zero-work result, not a failure.
	if text == "" {
		o.logger.Info("entity has no source text", "entity_id", entityID)
		outcome.Success = true
		outcome.NoContent = true
		outcome.Stage = StageDone
		return outcome
	}

	// The article title decides the ID scheme, so it must be resolved before
	// the fingerprint lookup can know which chunk-0 ID to fetch.
	sourceType := o.sourceType
	articleTitle := ""
	if o.titleFor != nil {
		if title := o.titleFor(entityID); title != "" {
			articleTitle = title
			sourceType = "wikipedia"
		}
	}

	fingerprint := core.Fingerprint(text)
	if o.skipUnchanged && o.unchanged(ctx, entityID, articleTitle, fingerprint) {
		o.logger.Info("entity unchanged, skipping", "entity_id", entityID)
		outcome.Success = true
		outcome.Skipped = true
		outcome.Stage = StageDone
		return outcome
	}

	var entityRecord *core.LandmarkRecord
	if o.deps.Records != nil {
		entityRecord, err = o.deps.Records.GetRecord(ctx, entityID)
		if err != nil {
			if !errors.Is(err, record.ErrRecordNotFound) {
				return fail(StageFetched, fmt.Errorf("fetching record: %w", err))
			}
			// Text without a record still gets indexed, just with thinner
			// metadata.
			o.logger.Warn("no entity record, indexing text only", "entity_id", entityID)
			entityRecord = nil
		}
	}

	segments, err := o.split(text)
	if err != nil {
		return fail(StageChunked, fmt.Errorf("chunking: %w", err))
	}
	if len(segments) == 0 {
		// Non-empty text that yields nothing is partial content: the
		// entity has text we failed to segment, which must surface as a
		// failure rather than silently index nothing.
		return fail(StageChunked, fmt.Errorf("%w: %d bytes of text", ErrNoSegments, len(text)))
	}
	outcome.SegmentsProcessed = len(segments)

	segments = o.deps.Enricher.EnrichSegments(ctx, segments, entityRecord, sourceType)
	for i := range segments {
		segments[i].Metadata[core.KeyContentHash] = fingerprint
	}

	embedded, err := o.deps.Generator.EmbedSegments(ctx, segments)
	if err != nil {
		return fail(StageEmbedded, fmt.Errorf("embedding: %w", err))
	}

	stored, err := o.deps.Writer.Store(ctx, embedded, entityID, index.StoreOptions{
		FixedIDs:       true,
		ArticleTitle:   articleTitle,
		Namespace:      o.namespace,
		DeleteExisting: o.deleteExisting,
	})
	outcome.VectorsStored = stored
	if err != nil {
		return fail(StageStored, fmt.Errorf("storing: %w", err))
	}

	o.logger.Info("entity processed",
		"entity_id", entityID, "segments", len(segments), "vectors", stored)
	outcome.Success = true
	outcome.Stage = StageDone
	return outcome
}

// ProcessBatch runs the entities concurrently on the worker pool and
// aggregates their outcomes. Completion order is not input order; the
// report's Outcomes preserve submission order.
func (o *Orchestrator) ProcessBatch(ctx context.Context, entityIDs []string) *BatchReport {
	outcomes := make([]Outcome, len(entityIDs))

	var wg sync.WaitGroup
	for i, entityID := range entityIDs {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = o.ProcessEntity(ctx, entityID)
		})
		if err != nil {
			outcomes[i] = Outcome{
				EntityID: entityID,
				Stage:    StageErrored,
				Err:      fmt.Errorf("submitting to pool: %w", err),
			}
			wg.Done()
		}
	}
	wg.Wait()

	report := &BatchReport{}
	for _, outcome := range outcomes {
		report.add(outcome)
	}

	o.logger.Info("batch complete",
		"processed", report.Processed,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"no_content", report.NoContent,
		"skipped", report.Skipped)
	return report
}

// unchanged reports whether the entity's stored first chunk carries the same
// content fingerprint. The lookup ID must match the scheme the writer used:
// wiki-sourced entities store under WikiChunkID, everything else under
// ChunkID. Any lookup problem counts as changed; reprocessing is always safe.
func (o *Orchestrator) unchanged(ctx context.Context, entityID, articleTitle, fingerprint string) bool {
	chunkID := core.ChunkID(entityID, 0)
	if articleTitle != "" {
		chunkID = core.WikiChunkID(articleTitle, entityID, 0)
	}
	stored, err := o.deps.Index.FetchByID(ctx, chunkID, o.namespace)
	if err != nil {
		if !errors.Is(err, index.ErrNotFound) {
			o.logger.Warn("fingerprint lookup failed, reprocessing",
				"entity_id", entityID, "error", err)
		}
		return false
	}
	hash, _ := stored.Metadata[core.KeyContentHash].(string)
	return hash != "" && hash == fingerprint
}

// Release frees the worker pool. The orchestrator must not be used after.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
