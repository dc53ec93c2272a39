// Package main hosts the fetch-media CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds the logger and the
// YouTube catalog client, and hands each invocation to internal/fetch. Result
// records go to stdout as JSON (or a table where --table is offered); logs
// always go to stderr and the log file.
package main
