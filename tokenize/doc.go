// Package tokenize provides the token accounting shared by chunking,
// embedding pre-truncation and context reduction.
//
// All three must count tokens the same way the embedding and completion
// providers do, otherwise chunk windows overflow the provider's input limit
// and context budgets are wrong. The production Tokenizer wraps tiktoken-go;
// Runes is a one-token-per-rune tokenizer for tests and offline use.
package tokenize
