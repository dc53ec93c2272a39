// Package preflight provides readiness checks for the filesystem paths and
// binaries fetch-media depends on.
//
// The download command calls Destination before any bytes are fetched so a
// read-only or full destination fails fast. The doctor command calls RunAll
// and renders every result.
package preflight
