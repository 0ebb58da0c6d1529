package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes a zerolog.Logger based on the requested format.
// format can be "text" (human-friendly console) or "json" (structured).
// Every line carries an app field so loader output stays attributable in
// shared log streams.
func Setup(format string) zerolog.Logger {
	if format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Str("app", "feedload").Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Str("app", "feedload").Logger()
}
