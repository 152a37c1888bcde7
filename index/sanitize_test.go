package index

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMetadata(t *testing.T) {
	in := map[string]any{
		"name":        "Grand Central Terminal",
		"style":       "",
		"chunk_index": 0,
		"total":       int64(4),
		"latitude":    40.7527,
		"landmarked":  true,
		"architect":   nil,
		"aliases":     []string{"GCT", "Grand Central"},
		"tags":        []any{"rail", "beaux-arts"},
		"nested":      map[string]any{"a": 1},
		"mixed":       []any{"ok", 7},
	}

	out := SanitizeMetadata(in, nil)

	assert.Equal(t, "Grand Central Terminal", out["name"])
	assert.Equal(t, "", out["style"], "empty string survives")
	assert.Equal(t, 0, out["chunk_index"], "zero survives")
	assert.Equal(t, int64(4), out["total"])
	assert.Equal(t, 40.7527, out["latitude"])
	assert.Equal(t, true, out["landmarked"])
	assert.Equal(t, []string{"GCT", "Grand Central"}, out["aliases"])
	assert.Equal(t, []string{"rail", "beaux-arts"}, out["tags"])

	assert.NotContains(t, out, "architect", "true null is stripped")
	assert.NotContains(t, out, "nested")
	assert.NotContains(t, out, "mixed")
}

func TestSanitizeMetadata_TruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("x", maxMetadataStringLen+100)
	out := SanitizeMetadata(map[string]any{"text": long}, nil)

	assert.Len(t, out["text"], maxMetadataStringLen)
}

func TestSanitizeMetadata_TruncationKeepsValidUTF8(t *testing.T) {
	// Fill to one byte short of the limit, then add a multi-byte rune that
	// straddles it. A byte-index cut would split the rune.
	long := strings.Repeat("x", maxMetadataStringLen-1) + "é" + strings.Repeat("y", 50)
	out := SanitizeMetadata(map[string]any{"text": long}, nil)

	got, ok := out["text"].(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxMetadataStringLen-1, "cut backs off to the rune boundary")
}

func TestSanitizeMetadata_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"architect": nil, "name": "x"}
	SanitizeMetadata(in, nil)

	assert.Contains(t, in, "architect")
	assert.Len(t, in, 2)
}

func TestStatusError(t *testing.T) {
	testCases := []struct {
		code      int
		retryable bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tc := range testCases {
		err := &StatusError{Code: tc.code, Message: "m"}
		assert.Equal(t, tc.retryable, err.Retryable(), "code %d", tc.code)
		assert.Contains(t, err.Error(), "status code")
	}
}
