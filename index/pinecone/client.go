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

package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/landvec/core"
	"github.com/poiesic/landvec/index"
)

// Client is a REST client to a Pinecone index endpoint. One Client targets
// one index host; namespaces are passed per call.
type Client struct {
	host   string
	apiKey string
	client *http.Client
}

// Config holds the connection settings for a Pinecone index.
type Config struct {
	// Host is the index endpoint, e.g. "https://landmarks-abc123.svc.pinecone.io".
	Host string

	// APIKey is sent in the Api-Key header on every request.
	APIKey string

	// Timeout bounds each HTTP call. Defaults to 30 seconds.
	Timeout time.Duration
}

// NewClient creates a Pinecone REST client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, ErrHostRequired
	}
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		host:   strings.TrimRight(cfg.Host, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type vectorPayload struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Upsert inserts or replaces records by ID.
func (c *Client) Upsert(ctx context.Context, records []core.VectorRecord, namespace string) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]vectorPayload, len(records))
	for i, rec := range records {
		vectors[i] = vectorPayload{ID: rec.ID, Values: rec.Values, Metadata: rec.Metadata}
	}
	body := map[string]any{"vectors": vectors}
	if namespace != "" {
		body["namespace"] = namespace
	}
	return c.postJSON(ctx, "/vectors/upsert", body, nil)
}

// DeleteByID removes the given vector IDs. Missing IDs are ignored by the
// service.
func (c *Client) DeleteByID(ctx context.Context, ids []string, namespace string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"ids": ids}
	if namespace != "" {
		body["namespace"] = namespace
	}
	return c.postJSON(ctx, "/vectors/delete", body, nil)
}

// DeleteByFilter removes every vector whose metadata matches the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter map[string]any, namespace string) error {
	if len(filter) == 0 {
		return errors.New("refusing to delete with an empty filter")
	}
	body := map[string]any{"filter": filter}
	if namespace != "" {
		body["namespace"] = namespace
	}
	return c.postJSON(ctx, "/vectors/delete", body, nil)
}

// Query returns the topK most similar vectors, with metadata.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]any, namespace string) ([]index.Match, error) {
	if topK <= 0 {
		topK = 10
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	if namespace != "" {
		body["namespace"] = namespace
	}

	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float32        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := c.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]index.Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = index.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}

// FetchByID retrieves one vector by ID. Returns index.ErrNotFound if the
// service has no record of it.
func (c *Client) FetchByID(ctx context.Context, id string, namespace string) (*core.VectorRecord, error) {
	query := url.Values{}
	query.Set("ids", id)
	if namespace != "" {
		query.Set("namespace", namespace)
	}

	var resp struct {
		Vectors map[string]vectorPayload `json:"vectors"`
	}
	if err := c.getJSON(ctx, "/vectors/fetch?"+query.Encode(), &resp); err != nil {
		return nil, err
	}

	v, ok := resp.Vectors[id]
	if !ok {
		return nil, fmt.Errorf("vector %q: %w", id, index.ErrNotFound)
	}
	return &core.VectorRecord{ID: v.ID, Values: v.Values, Metadata: v.Metadata}, nil
}

// Stats reports the index dimension and per-namespace vector counts.
func (c *Client) Stats(ctx context.Context) (*index.Stats, error) {
	var resp struct {
		Dimension        int `json:"dimension"`
		TotalVectorCount int `json:"totalVectorCount"`
		Namespaces       map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
	}
	if err := c.postJSON(ctx, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return nil, err
	}

	stats := &index.Stats{
		Dimension:        resp.Dimension,
		TotalVectorCount: resp.TotalVectorCount,
		Namespaces:       make(map[string]int, len(resp.Namespaces)),
	}
	for ns, info := range resp.Namespaces {
		stats.Namespaces[ns] = info.VectorCount
	}
	return stats, nil
}

// Close is a no-op; the client holds no persistent connections beyond the
// standard pool.
func (c *Client) Close() error { return nil }

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &index.StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
