// Package fetch orchestrates a fetch-media run.
//
// Download validates the request, prepares the destination, resolves the
// identifier through the catalog, selects a plan, retrieves the planned
// encodings, and hands them to the merge engine. The run holds an advisory
// lock on its base name and removes every temporary artifact before
// returning, whatever the outcome. Each download is journaled when a Journal
// is configured.
package fetch
