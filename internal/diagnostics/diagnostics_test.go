package diagnostics

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorRecordsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(slog.New(slog.NewTextHandler(&buf, nil)))

	c.Report(Diagnostic{Code: CodeOverwriteItemUnmatched, Message: "overwrite item dropped", UID: "M.Foo", Path: "/items/0", File: "b.md"})
	c.Report(Diagnostic{Code: CodeFragmentNotEditable, Message: "not editable", Path: "/name", File: "a.md", Severity: SeverityError})

	items := c.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, "a.md", items[0].File)
	assert.Equal(t, SeverityWarning, items[1].Severity)
	assert.Equal(t, 1, c.Count(CodeOverwriteItemUnmatched))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "uid=M.Foo")
	assert.Contains(t, out, "path=/items/0")
	assert.Contains(t, out, "level=ERROR")
}

func TestCollectorConcurrentReports(t *testing.T) {
	c := NewCollector(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Report(Diagnostic{Code: CodeUIDNotString})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}

func TestTee(t *testing.T) {
	var got []Code
	a := SinkFunc(func(d Diagnostic) { got = append(got, d.Code) })
	b := SinkFunc(func(d Diagnostic) { got = append(got, d.Code+"!") })

	Tee(a, b, Discard).Report(Diagnostic{Code: "X"})
	assert.Equal(t, []Code{"X", "X!"}, got)
}
