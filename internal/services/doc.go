// Package services defines shared utilities consumed by every stage of a
// fetch run.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and the resource
//     identifier for logging.
//   - Structured error markers plus the Wrap helper that classify failures into
//     the error kinds reported to callers (extraction, no stream, retrieval,
//     merge, timeout, canceled, invalid request).
//
// Use these helpers when wiring new stage logic so failures surface with the
// same kinds and messages across the pipeline.
package services
