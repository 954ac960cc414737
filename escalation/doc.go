// Package escalation decides when a user is asking for a human and tells
// the staff about it.
//
// A Detector matches a message against a list of target phrases. A literal
// occurrence of any phrase always escalates; otherwise the message is
// embedded and compared with the phrase embeddings, escalating when the best
// cosine similarity reaches the threshold. A Notifier delivers the alert.
package escalation
