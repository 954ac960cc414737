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
	// ErrInvalidDocumentRecord indicates a DocumentRecord failed validation.
	ErrInvalidDocumentRecord = errors.New("invalid document record")

	// ErrInvalidSession indicates a Session failed validation.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidTurn indicates a Turn failed validation.
	ErrInvalidTurn = errors.New("invalid conversation turn")

	// ErrEmptyID indicates a required identifier is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyContent indicates the text content is empty after cleaning.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyVector indicates a record has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrNonFiniteVector indicates an embedding with NaN or Inf components.
	ErrNonFiniteVector = errors.New("vector contains NaN or Inf")

	// ErrInvalidKind indicates an unknown RecordKind value.
	ErrInvalidKind = errors.New("invalid record kind")

	// ErrUnknownBackend indicates an unsupported session backend.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrMissingLocation indicates required location fields are missing for a backend.
	ErrMissingLocation = errors.New("missing location fields")

	// ErrInvalidRole indicates a turn role other than user or assistant.
	ErrInvalidRole = errors.New("invalid role")
)
