// Package chat answers questions against an ingested corpus.
//
// A Service resolves the question's session to a corpus, pulls keywords from
// the question, retrieves the closest chunks from the session's backend,
// reduces them to the context budget and hands everything to the
// conversation engine.
package chat
