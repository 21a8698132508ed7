// Package completion wraps the external text-completion providers behind a
// single interface. Providers hold no per-call state and are safe to use
// concurrently across in-flight requests.
package completion

import "context"

// Completer defines the interface for AI text-completion providers
type Completer interface {
	// Complete sends a system instruction and a user prompt and returns the
	// raw text completion. Decoding is controlled per call: temperature for
	// sampling, maxTokens as the output bound.
	Complete(ctx context.Context, system, prompt string, temperature float32, maxTokens int) (string, error)
	// Close closes the provider and releases resources
	Close() error
}
