// Package config loads, normalizes, and validates fetch-media configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PO_TOKEN and VISITOR_DATA. Catalog credentials are carried verbatim so the
// catalog client receives them unmodified; nothing else in the pipeline reads
// them.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
