package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call recorded by TestAPI.
type Report struct {
	// Kind is one of "broken", "warning", "debug" or "count".
	Kind   string
	ID     string
	Params []any
}

// TestAPI is an API that keeps every report in memory so tests can assert on
// what a component reported.
type TestAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewTestAPI() *TestAPI {
	return &TestAPI{}
}

func (t *TestAPI) record(kind, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reports = append(t.reports, Report{Kind: kind, ID: id, Params: params})
}

func (t *TestAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t *TestAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t *TestAPI) ReportDebug(msg string, params ...any) {
	t.record("debug", msg, params)
}

func (t *TestAPI) ReportCount(id string, count int64) {
	t.record("count", id, []any{count})
}

// Reports returns a copy of the reports of the given kind, or all of them if
// kind is empty.
func (t *TestAPI) Reports(kind string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range t.reports {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// HasBroken tells if a broken report with an id ending in suffix exists.
func (t *TestAPI) HasBroken(suffix string) bool {
	return t.Has("broken", suffix)
}

// Has tells if a report of kind with an id ending in suffix exists.
func (t *TestAPI) Has(kind, suffix string) bool {
	for _, r := range t.Reports(kind) {
		if strings.HasSuffix(r.ID, suffix) {
			return true
		}
	}
	return false
}

func (t *TestAPI) String() string {
	var out strings.Builder
	for _, r := range t.Reports("") {
		out.WriteString(fmt.Sprintf("[%s] %s %v\n", r.Kind, r.ID, r.Params))
	}
	return out.String()
}
