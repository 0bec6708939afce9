package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide zerolog logger shared by the API
// and the ingestor. APP_ENV=dev (or development) switches to the
// console writer for local pipeline runs; everything else logs JSON.
func NewLogger(env string) zerolog.Logger {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return l
}
