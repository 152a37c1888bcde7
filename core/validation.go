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


package core

import "fmt"

// ValidateVectorRecord validates a VectorRecord according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Values must not be empty
//   - Values must match the given dimension when dimension > 0
//
// NOT validated:
//   - Metadata (the index writer sanitizes it immediately before upsert)
func ValidateVectorRecord(record *VectorRecord, dimension int) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidVectorRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyVectorID)
	}

	if len(record.Values) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyVector)
	}

	if dimension > 0 && len(record.Values) != dimension {
		return fmt.Errorf("%w: %w: got %d, want %d",
			ErrInvalidVectorRecord, ErrDimensionMismatch, len(record.Values), dimension)
	}

	return nil
}

// ValidateDimension checks a vector against the configured dimension.
func ValidateDimension(vector []float32, dimension int) error {
	if dimension > 0 && len(vector) != dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dimension)
	}
	return nil
}
