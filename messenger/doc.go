// Package messenger connects a Facebook Messenger page to the chat service.
//
// The Client talks to the Graph API. The Dispatcher consumes webhook events:
// it ignores everything but fresh user messages, answers requests for staff
// with a canned acknowledgement and an alert, transcribes image attachments,
// and buffers the rest so a burst of messages becomes one question.
//
// Deduplication and buffering are process-local unless the dispatcher is
// given a shared deduplicator such as inbox.RedisDeduplicator.
package messenger
