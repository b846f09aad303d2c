// Package logger builds the process-wide structured logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stdout, tagged with the service name
// and hostname so aggregated logs from several registers stay attributable.
func New(service string) zerolog.Logger {
	hostname, _ := os.Hostname()
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Logger()
}
