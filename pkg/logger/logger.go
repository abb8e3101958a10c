// Package logger provides structured JSON event logging. Every entry is an
// event name plus a flat field map, so log lines stay grep- and
// ingest-friendly.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	initOnce sync.Once
	base     *slog.Logger
)

func Init() {
	initOnce.Do(func() {
		base = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	})
}

func logger() *slog.Logger {
	if base == nil {
		Init()
	}
	return base
}

func attrs(fields map[string]interface{}) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func Info(event string, fields map[string]interface{}) {
	logger().Info(event, attrs(fields)...)
}

func Warn(event string, fields map[string]interface{}) {
	logger().Warn(event, attrs(fields)...)
}

func Error(event string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	logger().Error(event, attrs(fields)...)
}

// InfoWithUser tags the entry with the acting user id.
func InfoWithUser(userID, event string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["user_id"] = userID
	Info(event, fields)
}
