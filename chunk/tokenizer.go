package chunk

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts text into a token sequence and back. The token chunker
// only ever rejoins contiguous windows of a sequence it just produced, so
// implementations need no state between calls.
type Tokenizer interface {
	// Tokenize splits text into tokens, each carrying its own surface text.
	Tokenize(text string) []string

	// Join reassembles a contiguous token window into text.
	Join(tokens []string) string
}

// TiktokenTokenizer tokenizes with the BPE encoding matched to the
// configured embedding model, so chunk budgets line up with what the
// embedding service actually counts.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a tokenizer for a named encoding,
// e.g. "cl100k_base".
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// NewTokenizerForModel creates a tokenizer matched to a model name,
// e.g. "text-embedding-3-small".
func NewTokenizerForModel(model string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// Tokenize encodes the text and decodes each token ID individually, so a
// window of tokens concatenates back to the exact original byte range.
func (t *TiktokenTokenizer) Tokenize(text string) []string {
	ids := t.enc.Encode(text, nil, nil)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = t.enc.Decode([]int{id})
	}
	return tokens
}

// Join concatenates BPE tokens; they carry their own whitespace.
func (t *TiktokenTokenizer) Join(tokens []string) string {
	return strings.Join(tokens, "")
}

// WordTokenizer is a whitespace tokenizer. It needs no encoding data files,
// which makes it the choice for tests and for deployments where the BPE
// vocabularies cannot be fetched.
type WordTokenizer struct{}

// Tokenize splits on any whitespace.
func (WordTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

// Join reassembles words with single spaces. Original spacing is not
// preserved, which is acceptable for embedding input.
func (WordTokenizer) Join(tokens []string) string {
	return strings.Join(tokens, " ")
}
