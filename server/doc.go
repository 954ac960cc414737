// Package server exposes ingestion, questions and the Messenger webhook
// over HTTP with gin.
//
// Every JSON response uses the envelope {"code", "message", "data"}; code 0
// means success. The webhook routes answer Facebook in its own plain-text
// form instead.
package server
