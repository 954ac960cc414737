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


// Package storage provides the storage abstraction layer for docchat.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two backends implement them:
//
//   - storage/badger: an embedded key-value vector index for document records
//   - storage/sqlstore: a gorm-backed relational store for document records,
//     sessions, conversation turns, greeting flags and processed message ids
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to enforce abstraction:
//
//	repo, err := badger.NewRepository(path)  // returns storage.DocumentRepository
//	store, err := sqlstore.Open(path)        // returns *sqlstore.Store, which satisfies every interface here
//
// # Architecture
//
//   - DocumentRepository: collection-scoped record writes and full scans
//   - SessionRepository: the append-only session log
//   - TurnRepository: per-user conversation history
//   - GreetingRepository: per-user first-turn flag
//   - ProcessedRepository: durable message id deduplication
//
// # Consistency
//
// A successful write is visible to every later read on the same repository.
// ReplaceAll is not atomic across batches: a failure part way through leaves
// the collection partially written and is reported as an error. Scans that
// race a ReplaceAll may observe either generation.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
