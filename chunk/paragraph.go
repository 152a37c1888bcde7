package chunk

import (
	"regexp"
	"strings"

	"github.com/poiesic/landvec/core"
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// ParagraphChunker accumulates whole paragraphs into character-budgeted
// segments. It suits already-short documents where token windows would cut
// mid-sentence; boundaries always fall on paragraph breaks, and consecutive
// segments share a word-aligned overlap.
type ParagraphChunker struct {
	chunkSize    int // character budget per segment
	chunkOverlap int // characters of trailing context seeded into the next segment
}

// NewParagraphChunker creates a paragraph-aware chunker. chunkSize must be
// positive; chunkOverlap must be non-negative and smaller than chunkSize.
func NewParagraphChunker(chunkSize, chunkOverlap int) (*ParagraphChunker, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &ParagraphChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk splits text on blank-line boundaries and accumulates paragraphs
// until adding the next one would exceed the character budget, then flushes
// the buffer as one segment. The next buffer is seeded with the trailing
// overlap of the prior buffer, taken on word boundaries so segments never
// start mid-word.
func (c *ParagraphChunker) Chunk(text string) ([]core.Segment, error) {
	if strings.TrimSpace(text) == "" {
		return []core.Segment{}, nil
	}

	var paragraphs []string
	for _, p := range blankLine.Split(text, -1) {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return []core.Segment{}, nil
	}

	var segments []core.Segment
	var buffer string

	flush := func() {
		if strings.TrimSpace(buffer) == "" {
			return
		}
		segments = append(segments, core.Segment{
			Text:  strings.TrimSpace(buffer),
			Index: len(segments),
		})
		buffer = trailingWords(buffer, c.chunkOverlap)
	}

	for _, paragraph := range paragraphs {
		if buffer != "" && len(buffer)+len(paragraph)+2 > c.chunkSize {
			flush()
		}
		if buffer == "" {
			buffer = paragraph
		} else {
			buffer += "\n\n" + paragraph
		}
	}
	if strings.TrimSpace(buffer) != "" {
		segments = append(segments, core.Segment{
			Text:  strings.TrimSpace(buffer),
			Index: len(segments),
		})
	}

	return finalize(segments), nil
}

// trailingWords returns the last whole words of text totalling at most
// maxChars characters. Splitting by words rather than bytes keeps the
// overlap from starting mid-word.
func trailingWords(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}

	words := strings.Fields(text)
	var tail []string
	total := 0
	for i := len(words) - 1; i >= 0; i-- {
		addition := len(words[i])
		if len(tail) > 0 {
			addition++ // joining space
		}
		if total+addition > maxChars {
			break
		}
		tail = append([]string{words[i]}, tail...)
		total += addition
	}
	return strings.Join(tail, " ")
}
