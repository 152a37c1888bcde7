package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "X-001-chunk-0", ChunkID("X-001", 0))
	assert.Equal(t, "LP-00099-chunk-12", ChunkID("LP-00099", 12))
}

func TestWikiChunkID(t *testing.T) {
	id := WikiChunkID("Empire State Building", "LP-02000", 3)
	assert.Equal(t, "wiki-Empire_State_Building-LP-02000-chunk-3", id)
}

func TestEphemeralChunkID(t *testing.T) {
	a := EphemeralChunkID("X-001", 0)
	b := EphemeralChunkID("X-001", 0)

	assert.True(t, strings.HasPrefix(a, "X-001-chunk-0-"))
	assert.NotEqual(t, a, b, "ephemeral IDs must differ between calls")
}

func TestFingerprint(t *testing.T) {
	fp1 := Fingerprint("some landmark text")
	fp2 := Fingerprint("some landmark text")
	fp3 := Fingerprint("some landmark text, edited")

	assert.Equal(t, fp1, fp2, "identical content must produce identical fingerprints")
	assert.NotEqual(t, fp1, fp3)
	assert.Len(t, fp1, 32) // 16 bytes hex encoded
}

func TestLandmarkRecord_ToMap(t *testing.T) {
	style := "Beaux-Arts"
	rec := &LandmarkRecord{
		ID:         "LP-00001",
		Name:       "City Hall",
		Borough:    "Manhattan",
		ObjectType: "Individual Landmark",
		Style:      &style,
		Extra:      map[string]any{"plot_area": 12000.0},
	}

	m := rec.ToMap()
	assert.Equal(t, "City Hall", m["name"])
	assert.Equal(t, "Beaux-Arts", m["style"])
	assert.Equal(t, 12000.0, m["plot_area"])

	// Nil pointer fields surface as true nulls for the filter pass.
	require.Contains(t, m, "architect")
	assert.Nil(t, m["architect"])
}

func TestBuildingRecord_IsEmpty(t *testing.T) {
	empty := &BuildingRecord{}
	assert.True(t, empty.IsEmpty())

	withBBL := &BuildingRecord{BBL: "1000477501"}
	assert.False(t, withBBL.IsEmpty())
}

func TestValidateVectorRecord(t *testing.T) {
	valid := &VectorRecord{ID: "X-001-chunk-0", Values: []float32{0.1, 0.2, 0.3}}

	require.NoError(t, ValidateVectorRecord(valid, 3))
	require.NoError(t, ValidateVectorRecord(valid, 0), "dimension 0 skips the length check")

	err := ValidateVectorRecord(valid, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = ValidateVectorRecord(&VectorRecord{Values: []float32{1}}, 0)
	assert.ErrorIs(t, err, ErrEmptyVectorID)

	err = ValidateVectorRecord(&VectorRecord{ID: "x"}, 0)
	assert.ErrorIs(t, err, ErrEmptyVector)

	err = ValidateVectorRecord(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidVectorRecord)
}
