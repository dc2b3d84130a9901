package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeySlug       = "slug"
	KeyTool       = "tool"
	KeyStage      = "stage"
	KeyAttempt    = "attempt"
	KeyRetries    = "retries"
	KeyWords      = "words"
	KeyPages      = "pages"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyModel      = "model"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Tool(t string) slog.Attr         { return slog.String(KeyTool, t) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Retries(n int) slog.Attr         { return slog.Int(KeyRetries, n) }
func Words(n int) slog.Attr           { return slog.Int(KeyWords, n) }
func Pages(n int) slog.Attr           { return slog.Int(KeyPages, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Model(m string) slog.Attr        { return slog.String(KeyModel, m) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
