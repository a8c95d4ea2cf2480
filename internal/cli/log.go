package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps read "15:04:05.00"; at
// debug level each line also carries its caller.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    level <= log.DebugLevel,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stage times one step of a command and logs it when done.
type stage struct {
	logger *log.Logger
	msg    string
	start  time.Time
}

func startStage(l *log.Logger, msg string) *stage {
	return &stage{logger: l, msg: msg, start: time.Now()}
}

// done logs the stage message with keyvals and the elapsed time, rounded
// to the millisecond.
func (s *stage) done(keyvals ...any) {
	keyvals = append(keyvals, "duration", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(s.msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
