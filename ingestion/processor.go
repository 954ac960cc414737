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


package ingestion

import (
	"context"
)

// batch carries one upload through the processors.
type batch struct {
	req *Request

	// chunks in upload order after deduplication
	chunks []pendingChunk
	// unit indices of image units
	images []int

	// vectors is parallel to chunks; failed slots are nil.
	vectors [][]float32
	// imageVectors is parallel to imageUnits.
	imageVectors [][]float32
	imageUnits   []int

	duplicates   int
	failedImages int
	embedErr     error
}

type pendingChunk struct {
	unit  int
	index int
	text  string
	hash  string
}

// processor is one step of the ingestion sequence.
type processor interface {
	name() string

	// process enriches b in place. An error aborts the upload.
	process(ctx context.Context, b *batch) error
}
