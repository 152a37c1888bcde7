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


package chunk

import (
	"github.com/poiesic/landvec/core"
)

// TokenChunker splits text into overlapping windows of a fixed token budget.
// It performs no I/O and is safe for concurrent use.
type TokenChunker struct {
	tokenizer Tokenizer
}

// NewTokenChunker creates a chunker over the given tokenizer.
func NewTokenChunker(tokenizer Tokenizer) (*TokenChunker, error) {
	if tokenizer == nil {
		return nil, ErrTokenizerRequired
	}
	return &TokenChunker{tokenizer: tokenizer}, nil
}

// Chunk splits text into segments of at most maxTokens tokens, each window
// overlapping the previous one by overlapTokens. Empty text returns an empty
// list, not an error. Invalid parameters are programmer errors and are
// rejected eagerly.
//
// If advancing the window would leave fewer than maxTokens/3 tokens, the
// remainder is folded into the current window instead of producing a
// pathologically small trailing segment.
func (c *TokenChunker) Chunk(text string, maxTokens, overlapTokens int) ([]core.Segment, error) {
	if maxTokens <= 0 {
		return nil, ErrInvalidMaxTokens
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, ErrInvalidOverlap
	}
	if text == "" {
		return []core.Segment{}, nil
	}

	tokens := c.tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return []core.Segment{}, nil
	}

	var segments []core.Segment
	if len(tokens) <= maxTokens {
		segments = append(segments, core.Segment{Text: text, Index: 0})
		return finalize(segments), nil
	}

	step := maxTokens - overlapTokens
	minTail := maxTokens / 3

	for start := 0; start < len(tokens); start += step {
		end := start + maxTokens
		last := false
		if end >= len(tokens) {
			end = len(tokens)
			last = true
		} else if len(tokens)-end < minTail {
			// Fold the short remainder into this window.
			end = len(tokens)
			last = true
		}

		segments = append(segments, core.Segment{
			Text:  c.tokenizer.Join(tokens[start:end]),
			Index: len(segments),
		})

		if last {
			break
		}
	}

	return finalize(segments), nil
}

// finalize is the second pass: the segment count is only known once
// splitting completes, so total_chunks cannot be stamped during the sweep.
func finalize(segments []core.Segment) []core.Segment {
	total := len(segments)
	for i := range segments {
		segments[i].TotalSegments = total
		segments[i].Metadata = map[string]any{
			core.KeyChunkIndex:  segments[i].Index,
			core.KeyTotalChunks: total,
		}
	}
	return segments
}
