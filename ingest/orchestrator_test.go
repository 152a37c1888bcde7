package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/landvec/ai/mock"
	"github.com/poiesic/landvec/chunk"
	"github.com/poiesic/landvec/core"
	"github.com/poiesic/landvec/embed"
	"github.com/poiesic/landvec/enrich"
	"github.com/poiesic/landvec/index"
	"github.com/poiesic/landvec/record"
)

// memoryIndex is a map-backed index.Client double.
type memoryIndex struct {
	mu      sync.Mutex
	records map[string]core.VectorRecord // key: namespace + "/" + id

	upsertErr error
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{records: make(map[string]core.VectorRecord)}
}

func (m *memoryIndex) key(namespace, id string) string { return namespace + "/" + id }

func (m *memoryIndex) Upsert(ctx context.Context, records []core.VectorRecord, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, rec := range records {
		m.records[m.key(namespace, rec.ID)] = rec
	}
	return nil
}

func (m *memoryIndex) DeleteByID(ctx context.Context, ids []string, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, m.key(namespace, id))
	}
	return nil
}

func (m *memoryIndex) DeleteByFilter(ctx context.Context, filter map[string]any, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, rec := range m.records {
		if !strings.HasPrefix(key, namespace+"/") {
			continue
		}
		matches := true
		for fk, fv := range filter {
			if rec.Metadata[fk] != fv {
				matches = false
				break
			}
		}
		if matches {
			delete(m.records, key)
		}
	}
	return nil
}

func (m *memoryIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]any, namespace string) ([]index.Match, error) {
	return nil, nil
}

func (m *memoryIndex) FetchByID(ctx context.Context, id string, namespace string) (*core.VectorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[m.key(namespace, id)]
	if !ok {
		return nil, index.ErrNotFound
	}
	return &rec, nil
}

func (m *memoryIndex) Stats(ctx context.Context) (*index.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &index.Stats{TotalVectorCount: len(m.records)}, nil
}

func (m *memoryIndex) Close() error { return nil }

func (m *memoryIndex) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memoryIndex) get(namespace, id string) (core.VectorRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[m.key(namespace, id)]
	return rec, ok
}

// stub providers

type textMap map[string]string

func (t textMap) GetText(ctx context.Context, entityID string) (string, error) {
	return t[entityID], nil
}

type failingTexts struct{ err error }

func (f failingTexts) GetText(ctx context.Context, entityID string) (string, error) {
	return "", f.err
}

type recordMap map[string]*core.LandmarkRecord

func (r recordMap) GetRecord(ctx context.Context, entityID string) (*core.LandmarkRecord, error) {
	rec, ok := r[entityID]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return rec, nil
}

type fixture struct {
	orchestrator *Orchestrator
	index        *memoryIndex
	embedder     *mock.MockEmbedder
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func newFixture(t *testing.T, texts record.SourceTextProvider, records record.EntityRecordProvider, opts ...Option) *fixture {
	t.Helper()

	embedder := mock.NewMockEmbedder(8)
	generator, err := embed.NewGenerator(embedder, 8,
		embed.WithPacing(0), embed.WithRetryBaseDelay(time.Millisecond))
	require.NoError(t, err)

	chunker, err := chunk.NewTokenChunker(chunk.WordTokenizer{})
	require.NoError(t, err)

	idx := newMemoryIndex()
	writer, err := index.NewWriter(idx)
	require.NoError(t, err)

	orchestrator, err := NewOrchestrator(Deps{
		Texts:     texts,
		Records:   records,
		Chunker:   chunker,
		Enricher:  enrich.NewEnricher(),
		Generator: generator,
		Writer:    writer,
		Index:     idx,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(orchestrator.Release)

	return &fixture{orchestrator: orchestrator, index: idx, embedder: embedder}
}

func TestNewOrchestrator_Validation(t *testing.T) {
	_, err := NewOrchestrator(Deps{})
	assert.ErrorIs(t, err, ErrTextProviderRequired)
}

func TestProcessEntity_HappyPath(t *testing.T) {
	architect := "John A. Roebling"
	f := newFixture(t,
		textMap{"LP-1": words(2500)},
		recordMap{"LP-1": {ID: "LP-1", Name: "Brooklyn Bridge", Architect: &architect}},
		WithChunkParams(1000, 200),
	)

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.Equal(t, StageDone, outcome.Stage)
	assert.Equal(t, 3, outcome.SegmentsProcessed)
	assert.Equal(t, 3, outcome.VectorsStored)

	rec, ok := f.index.get("", "LP-1-chunk-0")
	require.True(t, ok, "chunk 0 stored under its deterministic ID")
	assert.Equal(t, "LP-1", rec.Metadata[core.KeyLandmarkID])
	assert.Equal(t, "Brooklyn Bridge", rec.Metadata["name"])
	assert.Equal(t, "John A. Roebling", rec.Metadata["architect"])
	assert.Equal(t, "pdf", rec.Metadata[core.KeySourceType])
	assert.NotEmpty(t, rec.Metadata[core.KeyContentHash])
	assert.Equal(t, 3, rec.Metadata[core.KeyTotalChunks])
}

func TestProcessEntity_EmptyTextIsNoContentSuccess(t *testing.T) {
	f := newFixture(t, textMap{}, recordMap{})

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.True(t, outcome.NoContent)
	assert.Zero(t, outcome.VectorsStored)
	assert.Zero(t, f.index.count())
	assert.Zero(t, f.embedder.CallCount(), "no remote calls for empty text")
}

func TestProcessEntity_WhitespaceTextFailsAsPartialContent(t *testing.T) {
	f := newFixture(t, textMap{"LP-1": "   \n\t  "}, recordMap{})

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	assert.False(t, outcome.Success)
	assert.Equal(t, StageChunked, outcome.Stage)
	assert.ErrorIs(t, outcome.Err, ErrNoSegments)
}

func TestProcessEntity_TextFetchFailure(t *testing.T) {
	f := newFixture(t, failingTexts{err: errors.New("source offline")}, recordMap{})

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	assert.False(t, outcome.Success)
	assert.Equal(t, StageFetched, outcome.Stage)
}

func TestProcessEntity_MissingRecordStillIndexes(t *testing.T) {
	f := newFixture(t, textMap{"LP-1": words(50)}, recordMap{})

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.VectorsStored)

	rec, ok := f.index.get("", "LP-1-chunk-0")
	require.True(t, ok)
	assert.NotContains(t, rec.Metadata, "name")
	assert.Equal(t, "LP-1", rec.Metadata[core.KeyLandmarkID])
}

func TestProcessEntity_ReprocessingReplacesInPlace(t *testing.T) {
	texts := textMap{"LP-1": words(2500)}
	f := newFixture(t, texts, recordMap{}, WithChunkParams(1000, 200))

	first := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, first.Success)
	assert.Equal(t, 3, f.index.count())

	second := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, second.Success)
	assert.Equal(t, 3, f.index.count(), "same IDs replace, never accumulate")
}

func TestProcessEntity_DeleteExistingClearsStaleChunks(t *testing.T) {
	texts := textMap{"LP-1": words(2500)}
	f := newFixture(t, texts, recordMap{},
		WithChunkParams(1000, 200), WithDeleteExisting(true))

	first := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, first.Success)
	assert.Equal(t, 3, f.index.count())

	// Shorter text yields fewer chunks; stale high-index chunks must go.
	texts["LP-1"] = words(500)
	second := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, second.Success)
	assert.Equal(t, 1, f.index.count())

	_, ok := f.index.get("", "LP-1-chunk-2")
	assert.False(t, ok, "stale chunk removed")
}

func TestProcessEntity_SkipUnchanged(t *testing.T) {
	f := newFixture(t, textMap{"LP-1": words(100)}, recordMap{}, WithSkipUnchanged(true))

	first := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, first.Success)
	assert.False(t, first.Skipped)
	callsAfterFirst := f.embedder.CallCount()

	second := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, second.Success)
	assert.True(t, second.Skipped)
	assert.Equal(t, callsAfterFirst, f.embedder.CallCount(), "skip avoids re-embedding")
}

func TestProcessEntity_SkipUnchangedReprocessesChangedText(t *testing.T) {
	texts := textMap{"LP-1": words(100)}
	f := newFixture(t, texts, recordMap{}, WithSkipUnchanged(true))

	require.True(t, f.orchestrator.ProcessEntity(context.Background(), "LP-1").Success)

	texts["LP-1"] = words(120)
	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, outcome.Success)
	assert.False(t, outcome.Skipped)
}

func TestProcessEntity_WikiTitleSwitchesIDScheme(t *testing.T) {
	f := newFixture(t, textMap{"LP-1": words(50)}, recordMap{},
		WithTitleResolver(func(entityID string) string { return "Brooklyn Bridge" }))

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, outcome.Success)

	rec, ok := f.index.get("", "wiki-Brooklyn_Bridge-LP-1-chunk-0")
	require.True(t, ok)
	assert.Equal(t, "wikipedia", rec.Metadata[core.KeySourceType])
	assert.Equal(t, "Brooklyn Bridge", rec.Metadata[core.KeyArticleTitle])
}

func TestProcessEntity_SkipUnchangedWikiEntity(t *testing.T) {
	f := newFixture(t, textMap{"LP-1": words(100)}, recordMap{},
		WithSkipUnchanged(true),
		WithTitleResolver(func(entityID string) string { return "Brooklyn Bridge" }))

	first := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, first.Success)
	assert.False(t, first.Skipped)
	_, ok := f.index.get("", "wiki-Brooklyn_Bridge-LP-1-chunk-0")
	require.True(t, ok, "first run stores under the wiki ID")
	callsAfterFirst := f.embedder.CallCount()

	// The fingerprint lookup must use the wiki chunk-0 ID; a lookup under
	// the plain ID would miss and re-embed unchanged text every run.
	second := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.True(t, second.Success)
	assert.True(t, second.Skipped, "unchanged wiki entity is skipped")
	assert.Equal(t, callsAfterFirst, f.embedder.CallCount(), "skip avoids re-embedding")
}

func TestProcessEntity_ParagraphChunker(t *testing.T) {
	paragraphs := strings.Join([]string{
		strings.TrimSpace(strings.Repeat("alpha ", 7)),
		strings.TrimSpace(strings.Repeat("bravo ", 7)),
		strings.TrimSpace(strings.Repeat("canal ", 7)),
	}, "\n\n")

	paragraphChunker, err := chunk.NewParagraphChunker(60, 0)
	require.NoError(t, err)

	f := newFixture(t, textMap{"LP-1": paragraphs}, recordMap{},
		WithParagraphChunker(paragraphChunker))

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.SegmentsProcessed, "one segment per paragraph at this budget")
	assert.Equal(t, 3, outcome.VectorsStored)

	rec, ok := f.index.get("", "LP-1-chunk-0")
	require.True(t, ok)
	assert.Equal(t, 3, rec.Metadata[core.KeyTotalChunks])
}

func TestNewOrchestrator_ParagraphChunkerAllowsNilTokenChunker(t *testing.T) {
	embedder := mock.NewMockEmbedder(8)
	generator, err := embed.NewGenerator(embedder, 8, embed.WithPacing(0))
	require.NoError(t, err)

	idx := newMemoryIndex()
	writer, err := index.NewWriter(idx)
	require.NoError(t, err)

	deps := Deps{Texts: textMap{}, Generator: generator, Writer: writer}

	_, err = NewOrchestrator(deps)
	assert.ErrorIs(t, err, ErrChunkerRequired)

	paragraphChunker, err := chunk.NewParagraphChunker(500, 50)
	require.NoError(t, err)
	orchestrator, err := NewOrchestrator(deps, WithParagraphChunker(paragraphChunker))
	require.NoError(t, err)
	orchestrator.Release()
}

func TestProcessEntity_StoreFailure(t *testing.T) {
	f := newFixture(t, textMap{"LP-1": words(50)}, recordMap{})
	f.index.upsertErr = errors.New("index offline")

	outcome := f.orchestrator.ProcessEntity(context.Background(), "LP-1")
	assert.False(t, outcome.Success)
	assert.Equal(t, StageStored, outcome.Stage)
}

func TestProcessBatch_ContinuesPastFailures(t *testing.T) {
	texts := textMap{
		"LP-1": words(50),
		"LP-2": "", // no content
		"LP-3": "   ",
		"LP-4": words(80),
	}
	f := newFixture(t, texts, recordMap{}, WithPoolSize(2))

	report := f.orchestrator.ProcessBatch(context.Background(),
		[]string{"LP-1", "LP-2", "LP-3", "LP-4"})

	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.NoContent)
	require.Len(t, report.FailureSamples, 1)
	assert.Equal(t, "LP-3", report.FailureSamples[0].EntityID)
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, "LP-1", report.Outcomes[0].EntityID, "outcomes keep submission order")
}

func TestProcessBatch_FailureSamplesAreBounded(t *testing.T) {
	texts := textMap{}
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("LP-%d", i)
		texts[ids[i]] = "   " // each fails as partial content
	}
	f := newFixture(t, texts, recordMap{})

	report := f.orchestrator.ProcessBatch(context.Background(), ids)
	assert.Equal(t, 8, report.Failed)
	assert.Len(t, report.FailureSamples, maxFailureSamples)
}
