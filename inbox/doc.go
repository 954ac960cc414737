// Package inbox guards the chat pipeline against platform retries and
// message bursts.
//
// A Deduplicator remembers message ids so redelivered webhooks are ignored.
// The in-memory and SQL-backed variants suit a single instance; the Redis
// variant lets several instances share one view.
//
// A Buffer debounces each user's messages: every new message restarts the
// user's timer, and only when the user has been quiet for the delay are the
// buffered messages joined and flushed as one turn.
package inbox
