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


package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/poiesic/docchat/core"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	vectorBlobHeaderSize = 4
	vectorValueByteSize  = 4
)

// EncodeVector encodes a float32 vector into a binary blob.
// Format: [4-byte little-endian dimension][N x 4-byte little-endian float32 values].
func EncodeVector(vector []float32) ([]byte, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrSerializationFailed)
	}

	blob := make([]byte, vectorBlobHeaderSize+len(vector)*vectorValueByteSize)
	binary.LittleEndian.PutUint32(blob[:vectorBlobHeaderSize], uint32(len(vector)))

	offset := vectorBlobHeaderSize
	for i, value := range vector {
		if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrSerializationFailed, i)
		}
		binary.LittleEndian.PutUint32(blob[offset:offset+vectorValueByteSize], math.Float32bits(value))
		offset += vectorValueByteSize
	}
	return blob, nil
}

// EncodedVectorDimensions returns the vector length stored in a blob of size
// bytes created by EncodeVector.
func EncodedVectorDimensions(size int) int {
	if size < vectorBlobHeaderSize {
		return 0
	}
	return (size - vectorBlobHeaderSize) / vectorValueByteSize
}

// DecodeVector decodes a vector blob created by EncodeVector.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) < vectorBlobHeaderSize {
		return nil, fmt.Errorf("%w: vector blob of %d bytes", ErrTruncatedData, len(blob))
	}

	dim := int(binary.LittleEndian.Uint32(blob[:vectorBlobHeaderSize]))
	if dim <= 0 {
		return nil, fmt.Errorf("%w: vector dimension %d", ErrSerializationFailed, dim)
	}
	if len(blob) != vectorBlobHeaderSize+dim*vectorValueByteSize {
		return nil, fmt.Errorf("%w: dimension %d with %d payload bytes",
			ErrTruncatedData, dim, len(blob)-vectorBlobHeaderSize)
	}

	vector := make([]float32, dim)
	offset := vectorBlobHeaderSize
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[offset : offset+vectorValueByteSize]))
		offset += vectorValueByteSize
	}
	return vector, nil
}

// recordDocument is the stored shape of a DocumentRecord.
type recordDocument struct {
	ID          string            `bson:"id"`
	Collection  string            `bson:"collection"`
	Kind        int32             `bson:"kind"`
	Vector      []byte            `bson:"vector"`
	Model       string            `bson:"model,omitempty"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	RawText     string            `bson:"raw_text"`
	ContentHash string            `bson:"content_hash,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

// MarshalDocumentRecord serializes a DocumentRecord to BSON bytes.
// CreatedAt is stored with millisecond precision.
func MarshalDocumentRecord(record *core.DocumentRecord) ([]byte, error) {
	vector, err := EncodeVector(record.Vector)
	if err != nil {
		return nil, err
	}
	doc := recordDocument{
		ID:          record.ID,
		Collection:  record.Collection,
		Kind:        int32(record.Kind),
		Vector:      vector,
		Model:       record.Model,
		Metadata:    record.Metadata,
		RawText:     record.RawText,
		ContentHash: record.ContentHash,
		CreatedAt:   record.CreatedAt.UTC(),
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalDocumentRecord deserializes a DocumentRecord from BSON bytes.
func UnmarshalDocumentRecord(data []byte) (*core.DocumentRecord, error) {
	var doc recordDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	vector, err := DecodeVector(doc.Vector)
	if err != nil {
		return nil, err
	}
	return &core.DocumentRecord{
		ID:          doc.ID,
		Collection:  doc.Collection,
		Kind:        core.RecordKind(doc.Kind),
		Vector:      vector,
		Model:       doc.Model,
		Metadata:    doc.Metadata,
		RawText:     doc.RawText,
		ContentHash: doc.ContentHash,
		CreatedAt:   doc.CreatedAt.UTC(),
	}, nil
}
