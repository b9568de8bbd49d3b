// Package sl holds the slog attribute helpers shared by every module.
package sl

import (
	"fmt"
	"log/slog"
)

// Err renders an error under the common "error" key.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret masks a sensitive value, keeping the first 5 characters so tokens
// stay correlatable across log lines without being readable.
func Secret(key, value string) slog.Attr {
	r := "***"
	if len(value) > 5 {
		r = fmt.Sprintf("%s***", value[0:5])
	}
	if value == "" {
		r = "?"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(r),
	}
}

// Module names the subsystem a log line originates from.
func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}
