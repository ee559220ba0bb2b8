// Package analysis asks a chat-completion model for short commentary on
// report text.
//
// Respond never returns an error. Failures, timeouts and a disabled client
// all produce a string containing ErrorSentinel, which callers test with
// IsError before appending the commentary to a report. Any
// OpenAI-compatible endpoint can be used through base_url.
package analysis
