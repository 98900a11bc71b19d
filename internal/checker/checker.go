// Package checker runs one grade check cycle: scrape the portal, compare
// against the stored baseline, notify about changes and advance the
// baseline.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"
	"gradewatch/internal/notify"
	"gradewatch/internal/snapshotstore"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_checker_scrape = "checker.scrape"
	report_checker_load   = "checker.load"
	report_checker_notify = "checker.notify"
	report_checker_save   = "checker.save"
	report_checker_rename = "checker.rename"
)

// Stages a cycle can fail in.
const (
	StageScrape = "scrape"
	StageLoad   = "load"
	StageNotify = "notify"
	StageSave   = "save"
)

// Scraper returns the full current grade table or fails, it never returns
// a partial snapshot.
type Scraper interface {
	Scrape(ctx context.Context) (grades.Snapshot, error)
}

// Result describes one finished cycle.
type Result struct {
	CycleID    string            `json:"cycle_id"`
	Kind       grades.ChangeKind `json:"kind"`
	Changed    []grades.Record   `json:"changed"`
	Notified   bool              `json:"notified"`
	Saved      bool              `json:"saved"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	// Stage is where the cycle failed, empty when Err is nil. A notify
	// failure does not fail the cycle but is still recorded here.
	Stage string `json:"stage,omitempty"`
	Err   error  `json:"-"`
}

// Failed tells if the cycle was aborted.
func (r Result) Failed() bool {
	return r.Err != nil && r.Stage != StageNotify
}

type Checker struct {
	scraper   Scraper
	store     snapshotstore.Store
	transport notify.Transport
	time      chrono.TimeAPI
	tel       telemetry.API

	cycles   metric.Int64Counter
	changes  metric.Int64Counter
	failures metric.Int64Counter

	lastMutex sync.Mutex
	last      *Result
}

func New(
	scraper Scraper,
	store snapshotstore.Store,
	transport notify.Transport,
	time chrono.TimeAPI,
	tel telemetry.API,
) *Checker {
	assert.NotNil(scraper)
	assert.NotNil(store)
	assert.NotNil(transport)
	assert.NotNil(time)
	assert.NotNil(tel)

	meter := otel.Meter("gradewatch/checker")
	cycles, _ := meter.Int64Counter("gradewatch.cycles")
	changes, _ := meter.Int64Counter("gradewatch.changes")
	failures, _ := meter.Int64Counter("gradewatch.cycle_failures")

	return &Checker{
		scraper:   scraper,
		store:     store,
		transport: transport,
		time:      time,
		tel:       telemetry.NewScopedAPI("checker", tel),
		cycles:    cycles,
		changes:   changes,
		failures:  failures,
	}
}

func newCycleID() string {
	id, err := random.String(12)
	if err != nil {
		return fmt.Sprintf("cycle-%d", time.Now().UnixNano())
	}
	return id
}

// RunCheck runs one full cycle. The returned error is the cycle's failure,
// a failed notification alone does not fail the cycle.
func (c *Checker) RunCheck(ctx context.Context) (Result, error) {
	result := Result{
		CycleID:   newCycleID(),
		StartedAt: c.time.Now(),
		Changed:   []grades.Record{},
	}
	tel := telemetry.NewScopedAPI(result.CycleID, c.tel)

	fail := func(stage, reportId string, err error) (Result, error) {
		tel.ReportBroken(reportId, err)
		c.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
		result.Stage = stage
		result.Err = err
		result.FinishedAt = c.time.Now()
		c.setLast(result)
		return result, err
	}

	current, err := c.scraper.Scrape(ctx)
	if err != nil {
		return fail(StageScrape, report_checker_scrape, fmt.Errorf("scrape: %w", err))
	}
	err = current.Validate()
	if err != nil {
		return fail(StageScrape, report_checker_scrape, fmt.Errorf("scrape returned an invalid snapshot: %w", err))
	}

	stored, found, err := c.store.Load(ctx)
	if err != nil {
		return fail(StageLoad, report_checker_load, err)
	}
	var previous *grades.Snapshot
	if found {
		previous = &stored
		c.reportRenames(tel, stored, current)
	}

	cs := grades.Detect(previous, current)
	result.Kind = cs.Kind
	result.Changed = cs.Changed
	c.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", cs.Kind.String())))
	c.changes.Add(ctx, int64(len(cs.Changed)))
	tel.ReportDebug("detected changes", cs.Kind.String(), len(current), len(cs.Changed))

	if cs.Kind == grades.NoChange {
		result.FinishedAt = c.time.Now()
		c.setLast(result)
		return result, nil
	}

	payload := notify.Compose(cs)
	err = c.transport.Send(ctx, payload, c.time.Now())
	if err != nil {
		// the baseline advances even when the alert is lost.
		tel.ReportBroken(report_checker_notify, err)
		c.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", StageNotify)))
		result.Stage = StageNotify
		result.Err = err
	} else {
		result.Notified = true
	}

	err = c.store.Save(ctx, current)
	if err != nil {
		return fail(StageSave, report_checker_save, err)
	}
	result.Saved = true
	result.FinishedAt = c.time.Now()
	c.setLast(result)
	return result, nil
}

func (c *Checker) reportRenames(tel telemetry.API, previous, current grades.Snapshot) {
	for _, r := range grades.SuggestRenames(previous, current) {
		tel.ReportWarning(
			report_checker_rename,
			fmt.Sprintf("%q disappeared and %q appeared, the portal may have renamed it", r.From, r.To),
			r.Similarity,
		)
	}
}

func (c *Checker) setLast(r Result) {
	c.lastMutex.Lock()
	defer c.lastMutex.Unlock()
	c.last = &r
}

// LastResult returns the most recent cycle's result, ok is false before the
// first cycle finishes.
func (c *Checker) LastResult() (Result, bool) {
	c.lastMutex.Lock()
	defer c.lastMutex.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}
