package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/wooagent/internal/identity"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request through logger, with the token query
// parameter redacted from the URI.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return chiMiddleware.RequestLogger(&redactingFormatter{
		next: &chiMiddleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
			NoColor: true,
		},
	})
}

type redactingFormatter struct {
	next chiMiddleware.LogFormatter
}

func (f *redactingFormatter) NewLogEntry(r *http.Request) chiMiddleware.LogEntry {
	return f.next.NewLogEntry(identity.RedactToken(r))
}
