// Package logging builds the process logger: JSON lines on a writer, optionally fanned out to Sentry.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Options configures New.
type Options struct {
	Level     string
	Location  *time.Location
	SentryDSN string
	Env       string
}

// New returns the process logger and a flush function to call before exit.
// Errors are also sent to Sentry when a DSN is configured.
func New(w io.Writer, opts Options) (*slog.Logger, func(), error) {
	handler := NewHandler(w, ParseLevel(opts.Level), opts.Location)
	flush := func() {}

	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.Env,
		})
		if err != nil {
			return nil, flush, fmt.Errorf("init sentry: %w", err)
		}
		handler = slogmulti.Fanout(handler, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
		flush = func() { sentry.Flush(2 * time.Second) }
	}

	return slog.New(handler), flush, nil
}

// NewHandler returns a JSON handler that writes the record time as "ts" in loc.
func NewHandler(w io.Writer, level slog.Leveler, loc *time.Location) slog.Handler {
	if loc == nil {
		loc = time.UTC
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			}
			return a
		},
	})
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
