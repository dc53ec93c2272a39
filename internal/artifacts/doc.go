// Package artifacts owns the temporary files of a run.
//
// A Tracker registers every path before it is written, promotes the output
// onto its final name, and removes everything else when the run ends,
// regardless of outcome. Acquire guards a base name with an advisory lock so
// two runs cannot clobber each other's files, and CleanStale sweeps leftovers
// from runs that crashed before their cleanup could execute.
package artifacts
