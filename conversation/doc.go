// Package conversation turns a user message plus retrieved context into an
// assistant reply.
//
// Each user moves through two states: awaiting their first turn, when the
// reply opens with a greeting, and steady state afterwards. The flag is
// persisted per user and never reset. Every turn is logged, the last few
// exchanges are replayed as history, and the context can be narrowed by
// optional curation and summarization stages before the final completion.
//
// Completion failures do not surface as errors. The user receives a fixed
// apology instead and the turn is marked degraded.
package conversation
