package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyHash       = "hash"
	KeyOutput     = "output"
	KeyStep       = "step"
	KeyRunID      = "run_id"
	KeyEvent      = "event"
	KeyCategory   = "category"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Hash(h string) slog.Attr         { return slog.String(KeyHash, short(h)) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Event(name string) slog.Attr     { return slog.String(KeyEvent, name) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration converts d to milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// short truncates content hashes to 12 hex chars.
func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
