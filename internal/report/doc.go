// Package report builds the records fetch-media prints on stdout.
//
// A download produces exactly one Result, built once at the run boundary
// from either the executed plan or the terminating error.
package report
