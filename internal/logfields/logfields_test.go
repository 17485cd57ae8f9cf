package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Document", KeyDocument, "api/a.yml", Document("api/a.yml")},
		{"DocType", KeyDocType, "ManagedReference", DocType("ManagedReference")},
		{"UID", KeyUID, "M.Foo", UID("M.Foo")},
		{"Path", KeyPath, "/items/0", Path("/items/0")},
		{"File", KeyFile, "a.md", File("a.md")},
		{"Target", KeyTarget, "c.md", Target("c.md")},
		{"Interpreter", KeyInterpreter, "href", Interpreter("href")},
		{"Code", KeyCode, "X", Code("X")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if got := Count(3).Value.Int64(); got != 3 {
		t.Fatalf("Count: expected 3, got %d", got)
	}
	if got := DurationMS(1.5).Value.Float64(); got != 1.5 {
		t.Fatalf("DurationMS: expected 1.5, got %v", got)
	}
}
