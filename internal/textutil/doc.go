// Package textutil provides text helpers for filename sanitization and
// display snippets. Both normalize to NFC so names built from catalog titles
// compare and render consistently.
package textutil
