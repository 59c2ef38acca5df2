// Package manifest decodes the three regional wire formats (CN's CSV/JSON
// feeds, JP's encrypted length-prefixed binary, GL's single JSON payload)
// into catalog.Entry values. Every decoder here is pure: given bytes, it
// yields entries, with no network or filesystem access of its own.
package manifest

import "github.com/rs/zerolog"

// logger is the package-wide sink for non-fatal decode notices, e.g. an
// unrecognized CN media type. Region drivers reassign it via SetLogger;
// the zero value is zerolog's disabled logger so a decoder never panics
// before a logger is wired in.
var logger = zerolog.Nop()

// SetLogger overrides the decode-notice logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
