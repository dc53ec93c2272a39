// Package selection maps the encodings a catalog offers onto a retrieval plan.
//
// Select is a pure function parameterized by a single declared Policy. For a
// video request it walks a fixed ladder: the requested tier (or the highest
// one), paired with the best audio-only encoding; then the best progressive
// encoding; then no plan. Every fallback taken is recorded in Plan.Notes so
// callers can log it.
package selection
