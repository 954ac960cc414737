// Package ingestion turns extracted document units into stored, embedded
// records.
//
// The Pipeline runs each upload through a fixed sequence of processors:
//   - chunking splits every unit into overlapping token windows and drops
//     chunks whose content was already seen in the same upload
//   - embedding embeds the chunks in concurrent batches and appends image
//     vectors after the text vectors
//
// The records are then written to the backend named by the request and the
// upload is registered as a session so it can be queried later.
//
// Embedding failures are partial: chunks of a failed batch are logged,
// counted and left out, and the upload only fails when nothing could be
// embedded.
package ingestion
