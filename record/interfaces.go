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

package record

import (
	"context"

	"github.com/poiesic/landvec/core"
)

// EntityRecordProvider looks up the structured attributes of an entity.
type EntityRecordProvider interface {
	// GetRecord returns the record for the entity, or ErrRecordNotFound.
	GetRecord(ctx context.Context, entityID string) (*core.LandmarkRecord, error)
}

// SourceTextProvider supplies the raw text to chunk and embed for an entity.
// Empty text with a nil error is a legitimate answer: the entity exists but
// has nothing to index.
type SourceTextProvider interface {
	GetText(ctx context.Context, entityID string) (string, error)
}

// BuildingProvider looks up the buildings associated with an entity. It
// matches the enrich.BuildingSource contract.
type BuildingProvider interface {
	GetBuildings(ctx context.Context, entityID string) ([]core.BuildingRecord, error)
}
