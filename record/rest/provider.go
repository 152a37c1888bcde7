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

package rest

import (
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
	"github.com/poiesic/landvec/record"
)

// Provider fetches entity records and source text from an HTTP JSON API.
// Expected routes:
//
//	GET {base}/landmarks/{id}            -> landmark record JSON
//	GET {base}/landmarks/{id}/text       -> {"text": "..."}
//	GET {base}/landmarks/{id}/buildings  -> {"buildings": [...]}
type Provider struct {
	base   string
	apiKey string
	client *http.Client
}

// Config holds the connection settings for the records API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewProvider creates a records API client.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

var (
	_ record.EntityRecordProvider = (*Provider)(nil)
	_ record.SourceTextProvider   = (*Provider)(nil)
	_ record.BuildingProvider     = (*Provider)(nil)
)

type landmarkPayload struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Borough        string            `json:"borough"`
	ObjectType     string            `json:"object_type"`
	Style          *string           `json:"style"`
	Architect      *string           `json:"architect"`
	Neighborhood   *string           `json:"neighborhood"`
	DesignatedDate *string           `json:"designated_date"`
	Buildings      []buildingPayload `json:"buildings"`
	Extra          map[string]any    `json:"extra"`
}

type buildingPayload struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	BBL       string  `json:"bbl"`
	BIN       string  `json:"bin"`
	Block     string  `json:"block"`
	Lot       string  `json:"lot"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GetRecord fetches the landmark record for entityID.
func (p *Provider) GetRecord(ctx context.Context, entityID string) (*core.LandmarkRecord, error) {
	var payload landmarkPayload
	if err := p.getJSON(ctx, "/landmarks/"+url.PathEscape(entityID), &payload); err != nil {
		return nil, err
	}

	rec := &core.LandmarkRecord{
		ID:             payload.ID,
		Name:           payload.Name,
		Borough:        payload.Borough,
		ObjectType:     payload.ObjectType,
		Style:          payload.Style,
		Architect:      payload.Architect,
		Neighborhood:   payload.Neighborhood,
		DesignatedDate: payload.DesignatedDate,
		Buildings:      convertBuildings(payload.Buildings),
		Extra:          payload.Extra,
	}
	if rec.ID == "" {
		rec.ID = entityID
	}
	return rec, nil
}

// GetText fetches the designation-report text for entityID. A 404 means the
// entity has no text and returns "" with a nil error.
func (p *Provider) GetText(ctx context.Context, entityID string) (string, error) {
	var payload struct {
		Text string `json:"text"`
	}
	err := p.getJSON(ctx, "/landmarks/"+url.PathEscape(entityID)+"/text", &payload)
	if err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return payload.Text, nil
}

// GetBuildings fetches the buildings for entityID.
func (p *Provider) GetBuildings(ctx context.Context, entityID string) ([]core.BuildingRecord, error) {
	var payload struct {
		Buildings []buildingPayload `json:"buildings"`
	}
	if err := p.getJSON(ctx, "/landmarks/"+url.PathEscape(entityID)+"/buildings", &payload); err != nil {
		return nil, err
	}
	return convertBuildings(payload.Buildings), nil
}

func convertBuildings(payloads []buildingPayload) []core.BuildingRecord {
	if len(payloads) == 0 {
		return nil
	}
	buildings := make([]core.BuildingRecord, len(payloads))
	for i, b := range payloads {
		buildings[i] = core.BuildingRecord{
			Name:      b.Name,
			Address:   b.Address,
			BBL:       b.BBL,
			BIN:       b.BIN,
			Block:     b.Block,
			Lot:       b.Lot,
			Latitude:  b.Latitude,
			Longitude: b.Longitude,
		}
	}
	return buildings
}

func (p *Provider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+path, nil)
	if err != nil {
		return err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, record.ErrRecordNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("GET %s failed with status code: %d: %s",
			path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
