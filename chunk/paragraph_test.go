package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParagraphChunker_InvalidParams(t *testing.T) {
	_, err := NewParagraphChunker(0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewParagraphChunker(100, 100)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = NewParagraphChunker(100, -1)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestParagraphChunker_EmptyText(t *testing.T) {
	c, err := NewParagraphChunker(500, 50)
	require.NoError(t, err)

	segments, err := c.Chunk("")
	require.NoError(t, err)
	assert.Empty(t, segments)

	segments, err = c.Chunk("  \n\n   \n ")
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParagraphChunker_SingleShortParagraph(t *testing.T) {
	c, err := NewParagraphChunker(500, 50)
	require.NoError(t, err)

	segments, err := c.Chunk("The building was designated in 1966.")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "The building was designated in 1966.", segments[0].Text)
	assert.Equal(t, 1, segments[0].TotalSegments)
}

func TestParagraphChunker_SplitsOnParagraphBoundaries(t *testing.T) {
	p1 := strings.Repeat("alpha ", 20) + "end-one."
	p2 := strings.Repeat("bravo ", 20) + "end-two."
	p3 := strings.Repeat("charlie ", 20) + "end-three."
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	c, err := NewParagraphChunker(150, 30)
	require.NoError(t, err)

	segments, err := c.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)

	// First segment is paragraph one, whole; no mid-paragraph cuts.
	assert.Equal(t, strings.TrimSpace(p1), segments[0].Text)

	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, len(segments), seg.TotalSegments)
		assert.Equal(t, i, seg.Metadata["chunk_index"])
	}
}

func TestParagraphChunker_OverlapSeedsNextSegment(t *testing.T) {
	p1 := strings.Repeat("first ", 30)
	p2 := strings.Repeat("second ", 30)
	text := p1 + "\n\n" + p2

	c, err := NewParagraphChunker(200, 40)
	require.NoError(t, err)

	segments, err := c.Chunk(text)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	// The second segment starts with trailing words of the first buffer.
	assert.True(t, strings.HasPrefix(segments[1].Text, "first"),
		"second segment should be seeded with overlap from the first")
	assert.Contains(t, segments[1].Text, "second")
}

func TestTrailingWords(t *testing.T) {
	assert.Equal(t, "", trailingWords("some words here", 0))
	assert.Equal(t, "some words here", trailingWords("some words here", 100))
	assert.Equal(t, "here", trailingWords("some words here", 6))
	assert.Equal(t, "words here", trailingWords("some words here", 10))
	// Never returns a partial word.
	assert.Equal(t, "", trailingWords("supercalifragilistic", 5))
}
