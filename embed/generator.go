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

package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/landvec/ai"
	"github.com/poiesic/landvec/backoff"
	"github.com/poiesic/landvec/core"
)

// Retry ceilings: single-item calls are cheap to repeat, bulk calls are not.
const (
	maxSingleAttempts = 6
	maxBatchAttempts  = 3
)

// DefaultBatchSize is the number of texts submitted per embedding request.
const DefaultBatchSize = 32

// Generator turns segment texts into fixed-dimension vectors. It batches
// requests, retries transient failures with jittered backoff, paces itself
// between batches to stay under provider rate limits, and substitutes a
// deterministic zero vector for explicitly empty input. It keeps no state
// between calls.
type Generator struct {
	embedder  ai.Embedder
	dimension int
	batchSize int
	baseDelay time.Duration
	limiter   *rate.Limiter // cooperative pacing, not a hard rate limiter
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithBatchSize sets the maximum texts per embedding request.
func WithBatchSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.batchSize = size
		}
	}
}

// WithRetryBaseDelay sets the base delay for retry backoff.
// Default is 1 second.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(g *Generator) {
		if delay > 0 {
			g.baseDelay = delay
		}
	}
}

// WithPacing sets the sustained request rate between batches. Default is
// 2 requests/second. A zero or negative rate disables pacing.
func WithPacing(requestsPerSecond float64) Option {
	return func(g *Generator) {
		if requestsPerSecond <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates an embedding generator over the given embedder.
// dimension is the fixed vector length shared with the index; every
// produced vector is checked against it.
func NewGenerator(embedder ai.Embedder, dimension int, opts ...Option) (*Generator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	g := &Generator{
		embedder:  embedder,
		dimension: dimension,
		batchSize: DefaultBatchSize,
		baseDelay: time.Second,
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
		logger:    slog.Default().With("component", "embedding-generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Dimension returns the configured vector length.
func (g *Generator) Dimension() int {
	return g.dimension
}

// ZeroVector returns the deterministic sentinel vector used for empty text.
func (g *Generator) ZeroVector() []float32 {
	return make([]float32, g.dimension)
}

// EmbedOne embeds a single text. Empty text returns the zero vector without
// a remote call: there is nothing to embed, and tests get a stable sentinel.
func (g *Generator) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return g.ZeroVector(), nil
	}

	var vector []float32
	err := backoff.Retry(ctx, func() error {
		var err error
		vector, err = g.embedder.EmbedText(ctx, text)
		return err
	}, g.policy(maxSingleAttempts))
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if err := core.ValidateDimension(vector, g.dimension); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedBatch embeds texts in input order, submitting at most batchSize texts
// per request and concatenating results back into the original order.
// len(output) == len(input) is a hard postcondition. Empty texts never reach
// the remote service; they get the zero vector. A small pacing wait is taken
// between batches (not after the last) to stay under provider rate limits.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))

	// Positions of texts that actually need a remote call.
	remote := make([]int, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			out[i] = g.ZeroVector()
		} else {
			remote = append(remote, i)
		}
	}

	for batchStart := 0; batchStart < len(remote); batchStart += g.batchSize {
		batchEnd := min(batchStart+g.batchSize, len(remote))
		positions := remote[batchStart:batchEnd]

		if batchStart > 0 && g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		batch := make([]string, len(positions))
		for i, pos := range positions {
			batch[i] = texts[pos]
		}

		g.logger.Debug("embedding batch", "size", len(batch), "offset", batchStart)

		var vectors [][]float32
		err := backoff.Retry(ctx, func() error {
			var err error
			vectors, err = g.embedder.EmbedTexts(ctx, batch)
			return err
		}, g.policy(maxBatchAttempts))
		if err != nil {
			return nil, fmt.Errorf("embedding batch at offset %d failed: %w", batchStart, err)
		}

		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d texts, received %d vectors",
				ErrCountMismatch, len(batch), len(vectors))
		}

		for i, pos := range positions {
			if err := core.ValidateDimension(vectors[i], g.dimension); err != nil {
				return nil, fmt.Errorf("vector for input %d: %w", pos, err)
			}
			out[pos] = vectors[i]
		}
	}

	return out, nil
}

// EmbedSegments embeds segment texts in order and attaches the vectors,
// preserving segment order: output index i always corresponds to input
// segment i.
func (g *Generator) EmbedSegments(ctx context.Context, segments []core.Segment) ([]core.EmbeddedSegment, error) {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	vectors, err := g.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	embedded := make([]core.EmbeddedSegment, len(segments))
	for i := range segments {
		embedded[i] = core.EmbeddedSegment{Segment: segments[i], Vector: vectors[i]}
	}
	return embedded, nil
}

func (g *Generator) policy(maxAttempts int) backoff.Policy {
	return backoff.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   g.baseDelay,
		MaxDelay:    30 * time.Second,
		Retryable:   backoff.IsTransient,
	}
}
