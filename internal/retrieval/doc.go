// Package retrieval writes the encodings chosen by a selection plan into
// temporary files named after the run's base name and the track role.
package retrieval
