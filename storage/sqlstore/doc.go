// Package sqlstore implements the relational side of docchat's storage on
// gorm with a pure-Go SQLite driver.
//
// A single Store satisfies storage.DocumentRepository (the document_store
// backend), storage.SessionRepository, storage.TurnRepository,
// storage.GreetingRepository and storage.ProcessedRepository. Vectors are
// stored as little-endian float32 blobs; scans return records in insertion
// order.
package sqlstore
