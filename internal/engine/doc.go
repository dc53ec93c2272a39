// Package engine drives the external media engine (ffmpeg).
//
// Every invocation is an explicit Command value run by a Runner, so the
// stream-copy then re-encode ladder can be exercised against a fake engine.
// Outputs are written to an intermediate artifact and promoted onto the final
// name only once verified non-empty.
package engine
