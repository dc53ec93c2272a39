// Package catalog defines the encoding catalog collaborator: resource
// metadata, the encoding descriptors a source offers, and the interface used
// to resolve identifiers and stream descriptor bytes.
//
// Resolution labels are compared through ParseHeight and CompareLabels so
// every caller shares one total order: numeric height descending, unparsable
// labels last.
package catalog
