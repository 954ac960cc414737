// Package reembed rewrites the vectors of stored collections with the
// current embedding model.
//
// Retrieval refuses records tagged with another model. Re-embedding a
// collection after a model change brings those records back: every text
// record is embedded again in batches, with retries and progress output,
// and written back with the new model tag through Upsert. Image records
// are left alone.
package reembed
