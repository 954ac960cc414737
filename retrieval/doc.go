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


// Package retrieval ranks the records of a collection against a query.
//
// The Retriever embeds the query, scans the collection and scores every
// record by cosine similarity. Records are tagged with the model that
// embedded them, and vectors from different models are not comparable, so
// by default records from another model are refused. The Reconcile policy
// exists for legacy, untagged collections: vectors of a foreign dimension
// are sliced, padded or PCA-projected onto the query dimension.
package retrieval
