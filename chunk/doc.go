// Package chunk splits raw source text into bounded, overlapping segments.
//
// Two strategies are provided: TokenChunker slides a fixed token window
// using a model-matched tokenizer, and ParagraphChunker accumulates whole
// paragraphs under a character budget for already-short documents. Both are
// pure functions over text: segments preserve source order, indices are
// zero-based and contiguous, and every segment is stamped with the final
// segment count in a second pass.
package chunk
