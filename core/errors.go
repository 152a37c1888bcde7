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

import "errors"

// Domain validation errors
var (
	// ErrInvalidVectorRecord indicates a VectorRecord failed validation.
	ErrInvalidVectorRecord = errors.New("invalid vector record")

	// ErrEmptyVectorID indicates a vector record has no ID.
	ErrEmptyVectorID = errors.New("vector ID cannot be empty")

	// ErrEmptyVector indicates a vector record has no values.
	ErrEmptyVector = errors.New("vector values cannot be empty")

	// ErrDimensionMismatch indicates a vector's length does not match the
	// configured embedding dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyEntityID indicates an entity ID was not provided.
	ErrEmptyEntityID = errors.New("entity ID cannot be empty")
)
