// Package descriptor implements the keyword-line format that underlies
// Tor directory documents.
//
// Every Tor document type is a sequence of 'keyword lines': a keyword
// token, an optional value, and optionally a trailing pseudo-PGP block
// (-----BEGIN X----- ... -----END X-----). This package splits raw
// document bytes into those records and provides the shared value
// helpers (timestamps, integers, version strings) and the error
// taxonomy used by the document parsers built on top of it.
//
// The package is structured as three layers:
//
//   - Tokenize: converts raw bytes into an ordered record sequence,
//     attaching embedded blocks and stripping the legacy "opt " prefix.
//   - LineReader: a line-at-a-time reader with single-line peek and a
//     byte offset, used by section parsers to find document boundaries.
//   - Value helpers: strict parsers for the fixed timestamp format,
//     signed integers, and Tor version strings.
//
// Usage:
//
//	entries, err := descriptor.Tokenize(raw, descriptor.TokenizeOptions{Validate: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(entries.Len())
package descriptor
