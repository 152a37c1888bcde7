package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/landvec/core"
)

// fakeClient is a function-field test double for Client.
type fakeClient struct {
	UpsertFunc         func(ctx context.Context, records []core.VectorRecord, namespace string) error
	DeleteByIDFunc     func(ctx context.Context, ids []string, namespace string) error
	DeleteByFilterFunc func(ctx context.Context, filter map[string]any, namespace string) error
	QueryFunc          func(ctx context.Context, vector []float32, topK int, filter map[string]any, namespace string) ([]Match, error)
	FetchByIDFunc      func(ctx context.Context, id string, namespace string) (*core.VectorRecord, error)
	StatsFunc          func(ctx context.Context) (*Stats, error)
}

func (f *fakeClient) Upsert(ctx context.Context, records []core.VectorRecord, namespace string) error {
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, records, namespace)
	}
	return nil
}

func (f *fakeClient) DeleteByID(ctx context.Context, ids []string, namespace string) error {
	if f.DeleteByIDFunc != nil {
		return f.DeleteByIDFunc(ctx, ids, namespace)
	}
	return nil
}

func (f *fakeClient) DeleteByFilter(ctx context.Context, filter map[string]any, namespace string) error {
	if f.DeleteByFilterFunc != nil {
		return f.DeleteByFilterFunc(ctx, filter, namespace)
	}
	return nil
}

func (f *fakeClient) Query(ctx context.Context, vector []float32, topK int, filter map[string]any, namespace string) ([]Match, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, vector, topK, filter, namespace)
	}
	return nil, nil
}

func (f *fakeClient) FetchByID(ctx context.Context, id string, namespace string) (*core.VectorRecord, error) {
	if f.FetchByIDFunc != nil {
		return f.FetchByIDFunc(ctx, id, namespace)
	}
	return nil, ErrNotFound
}

func (f *fakeClient) Stats(ctx context.Context) (*Stats, error) {
	if f.StatsFunc != nil {
		return f.StatsFunc(ctx)
	}
	return &Stats{}, nil
}

func (f *fakeClient) Close() error { return nil }

func embeddedSegments(n int) []core.EmbeddedSegment {
	segs := make([]core.EmbeddedSegment, n)
	for i := range segs {
		segs[i] = core.EmbeddedSegment{
			Segment: core.Segment{
				Text:          fmt.Sprintf("chunk text %d", i),
				Index:         i,
				TotalSegments: n,
				Metadata:      map[string]any{"name": "Test Landmark"},
			},
			Vector: []float32{float32(i), 1, 2},
		}
	}
	return segs
}

func TestNewWriter_RequiresClient(t *testing.T) {
	_, err := NewWriter(nil)
	assert.ErrorIs(t, err, ErrClientRequired)
}

func TestStore_FixedIDs(t *testing.T) {
	var got []core.VectorRecord
	client := &fakeClient{
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			got = append(got, records...)
			assert.Equal(t, "landmarks", namespace)
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	stored, err := writer.Store(context.Background(), embeddedSegments(3), "LP-00123",
		StoreOptions{FixedIDs: true, Namespace: "landmarks"})
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	require.Len(t, got, 3)

	for i, rec := range got {
		assert.Equal(t, fmt.Sprintf("LP-00123-chunk-%d", i), rec.ID)
		assert.Equal(t, "LP-00123", rec.Metadata[core.KeyLandmarkID])
		assert.Equal(t, i, rec.Metadata[core.KeyChunkIndex])
		assert.Equal(t, 3, rec.Metadata[core.KeyTotalChunks])
		assert.Equal(t, "Test Landmark", rec.Metadata["name"])
	}
}

func TestStore_WikiIDs(t *testing.T) {
	var got []core.VectorRecord
	client := &fakeClient{
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			got = append(got, records...)
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	_, err = writer.Store(context.Background(), embeddedSegments(2), "LP-00123",
		StoreOptions{ArticleTitle: "Brooklyn Bridge"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "wiki-Brooklyn_Bridge-LP-00123-chunk-0", got[0].ID)
	assert.Equal(t, "wiki-Brooklyn_Bridge-LP-00123-chunk-1", got[1].ID)
	assert.Equal(t, "Brooklyn Bridge", got[0].Metadata[core.KeyArticleTitle])
}

func TestStore_EphemeralIDsAreUnique(t *testing.T) {
	var got []core.VectorRecord
	client := &fakeClient{
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			got = append(got, records...)
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	segs := embeddedSegments(2)
	for run := 0; run < 2; run++ {
		_, err = writer.Store(context.Background(), segs, "LP-00123", StoreOptions{})
		require.NoError(t, err)
	}
	require.Len(t, got, 4)

	ids := make(map[string]bool)
	for _, rec := range got {
		assert.True(t, strings.HasPrefix(rec.ID, "LP-00123-chunk-"))
		assert.False(t, ids[rec.ID], "ephemeral IDs must never collide: %s", rec.ID)
		ids[rec.ID] = true
	}
}

func TestStore_DuplicateIndicesLastWins(t *testing.T) {
	var got []core.VectorRecord
	client := &fakeClient{
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			got = append(got, records...)
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	segs := []core.EmbeddedSegment{
		{Segment: core.Segment{Text: "first", Index: 0, TotalSegments: 2}, Vector: []float32{1}},
		{Segment: core.Segment{Text: "second", Index: 1, TotalSegments: 2}, Vector: []float32{2}},
		{Segment: core.Segment{Text: "replacement", Index: 0, TotalSegments: 2}, Vector: []float32{3}},
	}

	stored, err := writer.Store(context.Background(), segs, "LP-1", StoreOptions{FixedIDs: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	require.Len(t, got, 2)

	assert.Equal(t, "LP-1-chunk-0", got[0].ID)
	assert.Equal(t, []float32{3}, got[0].Values, "last occurrence of a duplicate ID wins")
	assert.Equal(t, "LP-1-chunk-1", got[1].ID)
}

func TestStore_DeleteExistingRunsOnceBeforeUpserts(t *testing.T) {
	var calls []string
	client := &fakeClient{
		DeleteByFilterFunc: func(ctx context.Context, filter map[string]any, namespace string) error {
			calls = append(calls, "delete")
			assert.Equal(t, map[string]any{core.KeyLandmarkID: "LP-9"}, filter)
			return nil
		},
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			calls = append(calls, fmt.Sprintf("upsert:%d", len(records)))
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	stored, err := writer.Store(context.Background(), embeddedSegments(250), "LP-9",
		StoreOptions{FixedIDs: true, DeleteExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 250, stored)
	assert.Equal(t, []string{"delete", "upsert:100", "upsert:100", "upsert:50"}, calls,
		"delete runs exactly once, before the first sub-batch")
}

func TestStore_ContinuesPastFailedSubBatch(t *testing.T) {
	call := 0
	client := &fakeClient{
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			call++
			if call == 2 {
				return errors.New("boom")
			}
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	stored, err := writer.Store(context.Background(), embeddedSegments(250), "LP-9",
		StoreOptions{FixedIDs: true})
	require.Error(t, err)
	assert.Equal(t, 150, stored, "surviving sub-batches still count")
	assert.Contains(t, err.Error(), "offset 100")
}

func TestStore_DeleteExistingFailureAborts(t *testing.T) {
	client := &fakeClient{
		DeleteByFilterFunc: func(ctx context.Context, filter map[string]any, namespace string) error {
			return errors.New("index offline")
		},
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			t.Fatal("upsert must not run when the pre-delete fails")
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	stored, err := writer.Store(context.Background(), embeddedSegments(1), "LP-9",
		StoreOptions{FixedIDs: true, DeleteExisting: true})
	require.Error(t, err)
	assert.Equal(t, 0, stored)
}

func TestStore_EmptyInputs(t *testing.T) {
	writer, err := NewWriter(&fakeClient{})
	require.NoError(t, err)

	stored, err := writer.Store(context.Background(), nil, "LP-1", StoreOptions{FixedIDs: true})
	require.NoError(t, err)
	assert.Zero(t, stored)

	_, err = writer.Store(context.Background(), embeddedSegments(1), "", StoreOptions{})
	assert.ErrorIs(t, err, core.ErrEmptyEntityID)
}

func TestStore_StripsNullMetadata(t *testing.T) {
	var got []core.VectorRecord
	client := &fakeClient{
		UpsertFunc: func(ctx context.Context, records []core.VectorRecord, namespace string) error {
			got = append(got, records...)
			return nil
		},
	}
	writer, err := NewWriter(client)
	require.NoError(t, err)

	segs := []core.EmbeddedSegment{{
		Segment: core.Segment{
			Text:  "t",
			Index: 0, TotalSegments: 1,
			Metadata: map[string]any{"architect": nil, "name": "City Hall", "style": ""},
		},
		Vector: []float32{1},
	}}

	_, err = writer.Store(context.Background(), segs, "LP-1", StoreOptions{FixedIDs: true})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.NotContains(t, got[0].Metadata, "architect")
	assert.Equal(t, "City Hall", got[0].Metadata["name"])
	assert.Equal(t, "", got[0].Metadata["style"], "empty string is a value, not a null")
}
