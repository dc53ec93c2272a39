// Package history keeps a SQLite journal of download runs.
//
// Each download appends one row keyed by its run id after the run finishes,
// successful or not. The journal backs the history command and is never
// consulted when selecting or retrieving streams.
package history
