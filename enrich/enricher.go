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


package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/landvec/core"
)

// BuildingSource is an auxiliary lookup for building sub-records when the
// entity record itself does not carry them. Failures here degrade the
// enrichment; they never fail a segment.
type BuildingSource interface {
	GetBuildings(ctx context.Context, entityID string) ([]core.BuildingRecord, error)
}

// Enricher merges entity attributes into a flat, null-free metadata map
// attached to every segment of that entity.
type Enricher struct {
	buildings BuildingSource // optional
	logger    *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithBuildingSource sets an auxiliary lookup for building records.
func WithBuildingSource(source BuildingSource) Option {
	return func(e *Enricher) {
		e.buildings = source
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnricher creates a metadata enricher.
func NewEnricher(opts ...Option) *Enricher {
	e := &Enricher{
		logger: slog.Default().With("component", "enricher"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichSegments attaches the flattened record metadata to every segment,
// preserving the per-segment chunk fields already present. Each segment gets
// its own map copy so later per-segment mutation cannot leak across
// segments. Never returns an error for malformed or partial records.
func (e *Enricher) EnrichSegments(ctx context.Context, segments []core.Segment, record *core.LandmarkRecord, sourceType string) []core.Segment {
	base := e.flattenWithAux(ctx, record)
	if sourceType != "" {
		base[core.KeySourceType] = sourceType
	}
	if record != nil && record.ID != "" {
		base[core.KeyLandmarkID] = record.ID
	}

	for i := range segments {
		merged := make(map[string]any, len(base)+len(segments[i].Metadata))
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range segments[i].Metadata {
			merged[k] = v
		}
		segments[i].Metadata = FilterNulls(merged)
	}
	return segments
}

// flattenWithAux flattens the record, pulling buildings from the auxiliary
// source when the record has none. A failing lookup is logged and the
// enrichment proceeds with whatever fields were already available.
func (e *Enricher) flattenWithAux(ctx context.Context, record *core.LandmarkRecord) map[string]any {
	if record == nil {
		return map[string]any{}
	}

	buildings := record.Buildings
	if len(buildings) == 0 && e.buildings != nil {
		fetched, err := e.buildings.GetBuildings(ctx, record.ID)
		if err != nil {
			e.logger.Warn("building lookup failed, continuing without buildings",
				"entity", record.ID, "err", err)
		} else {
			buildings = fetched
		}
	}

	enriched := *record
	enriched.Buildings = buildings
	return Flatten(&enriched)
}

// Flatten converts a record into a flat scalar map. Scalar fields are copied
// verbatim; each building contributes "building_<i>_<field>" keys, and
// "building_count" records how many buildings had at least one non-empty
// field. Entirely empty buildings are dropped, not counted. The result is
// passed through FilterNulls before being returned.
func Flatten(record *core.LandmarkRecord) map[string]any {
	if record == nil {
		return map[string]any{}
	}

	flat := record.ToMap()

	kept := 0
	for i := range record.Buildings {
		b := &record.Buildings[i]
		if b.IsEmpty() {
			continue
		}
		prefix := fmt.Sprintf("building_%d_", kept)
		flat[prefix+"name"] = b.Name
		flat[prefix+"address"] = b.Address
		flat[prefix+"bbl"] = b.BBL
		flat[prefix+"bin"] = b.BIN
		flat[prefix+"block"] = b.Block
		flat[prefix+"lot"] = b.Lot
		if b.Latitude != 0 || b.Longitude != 0 {
			flat[prefix+"latitude"] = b.Latitude
			flat[prefix+"longitude"] = b.Longitude
		}
		kept++
	}
	if kept > 0 {
		flat["building_count"] = kept
	}

	return FilterNulls(flat)
}

// FilterNulls removes every key whose value is a true null. Empty strings,
// zero, and false are present values and are retained; the downstream index
// rejects null-valued fields, so nulls must never reach an upsert.
func FilterNulls(metadata map[string]any) map[string]any {
	for k, v := range metadata {
		if v == nil {
			delete(metadata, k)
		}
	}
	return metadata
}

// SourceTypeForID resolves the source type from the vector-ID prefix
// convention, for callers that do not carry an explicit source type.
func SourceTypeForID(vectorID string) string {
	switch {
	case strings.HasPrefix(vectorID, "wiki-"):
		return "wikipedia"
	case strings.HasPrefix(vectorID, "test-"):
		return "test"
	default:
		return "pdf"
	}
}
