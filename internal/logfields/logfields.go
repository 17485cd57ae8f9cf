package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyDocument    = "document"
	KeyDocType     = "doc_type"
	KeyUID         = "uid"
	KeyPath        = "path"
	KeyFile        = "file"
	KeyTarget      = "target"
	KeyInterpreter = "interpreter"
	KeyCode        = "code"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyOutcome     = "outcome"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Document(key string) slog.Attr     { return slog.String(KeyDocument, key) }
func DocType(t string) slog.Attr        { return slog.String(KeyDocType, t) }
func UID(uid string) slog.Attr          { return slog.String(KeyUID, uid) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func File(f string) slog.Attr           { return slog.String(KeyFile, f) }
func Target(t string) slog.Attr         { return slog.String(KeyTarget, t) }
func Interpreter(name string) slog.Attr { return slog.String(KeyInterpreter, name) }
func Code(c string) slog.Attr           { return slog.String(KeyCode, c) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Outcome(o string) slog.Attr        { return slog.String(KeyOutcome, o) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
