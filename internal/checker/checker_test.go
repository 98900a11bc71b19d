package checker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"
	"gradewatch/internal/notify"
	"gradewatch/internal/scrapers/portal"
	"gradewatch/internal/snapshotstore"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	snapshot grades.Snapshot
	err      error
}

func (s *fakeScraper) Scrape(ctx context.Context) (grades.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append(grades.Snapshot(nil), s.snapshot...), nil
}

type memoryStore struct {
	snapshot *grades.Snapshot
	loadErr  error
	saveErr  error
	loads    int
	saves    int
}

func (s *memoryStore) Load(ctx context.Context) (grades.Snapshot, bool, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	if s.snapshot == nil {
		return nil, false, nil
	}
	return *s.snapshot, true, nil
}

func (s *memoryStore) Save(ctx context.Context, snapshot grades.Snapshot) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshot = &snapshot
	return nil
}

type recordingTransport struct {
	mutex    sync.Mutex
	payloads []notify.Payload
	err      error
}

func (t *recordingTransport) Send(ctx context.Context, payload notify.Payload, sentAt time.Time) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.payloads = append(t.payloads, payload)
	return t.err
}

var testNow = time.Date(2025, 12, 26, 9, 0, 0, 0, chrono.Seoul())

type fixture struct {
	scraper   *fakeScraper
	store     *memoryStore
	transport *recordingTransport
	tel       *telemetry.TestAPI
	checker   *Checker
}

func newFixture(previous *grades.Snapshot, current grades.Snapshot) fixture {
	f := fixture{
		scraper:   &fakeScraper{snapshot: current},
		store:     &memoryStore{snapshot: previous},
		transport: &recordingTransport{},
		tel:       telemetry.NewTestAPI(),
	}
	f.checker = New(f.scraper, f.store, f.transport, chrono.FixedTime{Time: testNow}, f.tel)
	return f
}

func snapshotPtr(s grades.Snapshot) *grades.Snapshot {
	return &s
}

var (
	pending = grades.Snapshot{
		{Subject: "자료구조", Grade: "-", Status: "미입력"},
		{Subject: "운영체제", Grade: "-", Status: "미입력"},
	}
	oneGraded = grades.Snapshot{
		{Subject: "자료구조", Grade: "A+", Status: "입력"},
		{Subject: "운영체제", Grade: "-", Status: "미입력"},
	}
)

func TestRunCheckFirstRun(t *testing.T) {
	f := newFixture(nil, pending)

	result, err := f.checker.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.FirstRun, result.Kind)
	require.Empty(t, result.Changed)
	require.True(t, result.Notified)
	require.True(t, result.Saved)
	require.NotEmpty(t, result.CycleID)

	require.Len(t, f.transport.payloads, 1)
	require.Equal(t, notify.Compose(grades.ChangeSet{Kind: grades.FirstRun}), f.transport.payloads[0])

	if diff := cmp.Diff(pending, *f.store.snapshot); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunCheckNoChange(t *testing.T) {
	reordered := grades.Snapshot{pending[1], pending[0]}
	f := newFixture(snapshotPtr(pending), reordered)

	result, err := f.checker.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.NoChange, result.Kind)
	require.False(t, result.Notified)
	require.False(t, result.Saved)
	require.Empty(t, f.transport.payloads)
	require.Equal(t, 0, f.store.saves)
}

func TestRunCheckUpdated(t *testing.T) {
	f := newFixture(snapshotPtr(pending), oneGraded)

	result, err := f.checker.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.Updated, result.Kind)
	require.Equal(t, []grades.Record{oneGraded[0]}, result.Changed)
	require.True(t, result.Notified)
	require.True(t, result.Saved)

	require.Len(t, f.transport.payloads, 1)
	payload := f.transport.payloads[0]
	require.Len(t, payload.Blocks, 1)
	require.Equal(t, "자료구조", payload.Blocks[0].Title)

	// the whole table becomes the baseline, not only the changed rows
	if diff := cmp.Diff(oneGraded, *f.store.snapshot); diff != "" {
		t.Fatal(diff)
	}

	// running again against the new baseline finds nothing
	result, err = f.checker.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.NoChange, result.Kind)
	require.Len(t, f.transport.payloads, 1)
}

func TestRunCheckScrapeFailure(t *testing.T) {
	failures := []error{
		&portal.AuthFailure{Message: "아이디 또는 비밀번호가 일치하지 않습니다."},
		&portal.PageStructureFailure{Page: "grades", Reason: "grade table not found"},
		&portal.TimeoutFailure{Stage: "grades", Err: context.DeadlineExceeded},
	}

	for _, scrapeErr := range failures {
		t.Run(scrapeErr.Error(), func(t *testing.T) {
			f := newFixture(snapshotPtr(pending), nil)
			f.scraper.err = scrapeErr

			result, err := f.checker.RunCheck(context.Background())
			require.ErrorIs(t, err, scrapeErr)
			require.Equal(t, StageScrape, result.Stage)
			require.True(t, result.Failed())
			require.True(t, f.tel.HasBroken(report_checker_scrape))

			require.Equal(t, 0, f.store.loads)
			require.Equal(t, 0, f.store.saves)
			require.Empty(t, f.transport.payloads)
		})
	}
}

func TestRunCheckInvalidSnapshot(t *testing.T) {
	f := newFixture(snapshotPtr(pending), grades.Snapshot{
		{Subject: "자료구조", Grade: "A", Status: "입력"},
		{Subject: "자료구조", Grade: "B", Status: "입력"},
	})

	result, err := f.checker.RunCheck(context.Background())
	require.ErrorIs(t, err, grades.ErrDuplicateSubject)
	require.Equal(t, StageScrape, result.Stage)
	require.Equal(t, 0, f.store.loads)
	require.Empty(t, f.transport.payloads)
}

func TestRunCheckScrapeFailureKeepsFileBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades_history.json")
	tel := telemetry.NewTestAPI()
	store := snapshotstore.NewFileStore(path, tel)
	require.NoError(t, store.Save(context.Background(), pending))

	scraper := &fakeScraper{err: &portal.AuthFailure{}}
	transport := &recordingTransport{}
	checker := New(scraper, store, transport, chrono.FixedTime{Time: testNow}, tel)

	_, err := checker.RunCheck(context.Background())
	require.True(t, portal.IsAuthFailure(err))

	// the next successful scrape compares against the untouched baseline
	scraper.err = nil
	scraper.snapshot = oneGraded
	result, err := checker.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.Updated, result.Kind)
	require.Equal(t, []grades.Record{oneGraded[0]}, result.Changed)
}

func TestRunCheckCorruptBaselineReportedOnce(t *testing.T) {
	tel := telemetry.NewTestAPI()
	path := filepath.Join(t.TempDir(), "grades_history.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"subject":`), 0o600))

	store := snapshotstore.NewFileStore(path, tel)
	checker := New(&fakeScraper{snapshot: oneGraded}, store, &recordingTransport{}, chrono.FixedTime{Time: testNow}, tel)

	_, err := checker.RunCheck(context.Background())
	require.ErrorIs(t, err, snapshotstore.ErrCorrupt)

	broken := tel.Reports("broken")
	require.Len(t, broken, 1, tel.String())
	require.True(t, strings.HasSuffix(broken[0].ID, report_checker_load))
}

func TestRunCheckLoadFailure(t *testing.T) {
	f := newFixture(nil, oneGraded)
	f.store.loadErr = &snapshotstore.StorageError{
		Op:      "load",
		Backend: "memory",
		Err:     snapshotstore.ErrCorrupt,
	}

	result, err := f.checker.RunCheck(context.Background())
	require.True(t, snapshotstore.IsStorageError(err))
	require.Equal(t, StageLoad, result.Stage)
	require.True(t, f.tel.HasBroken(report_checker_load))
	require.Equal(t, 0, f.store.saves)
	// storage faults go to the operator log, never to the student
	require.Empty(t, f.transport.payloads)
}

func TestRunCheckNotifyFailureStillSaves(t *testing.T) {
	f := newFixture(snapshotPtr(pending), oneGraded)
	f.transport.err = errors.New("discord: 503 Service Unavailable")

	result, err := f.checker.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.Updated, result.Kind)
	require.False(t, result.Notified)
	require.True(t, result.Saved)
	require.Equal(t, StageNotify, result.Stage)
	require.False(t, result.Failed())
	require.True(t, f.tel.HasBroken(report_checker_notify))

	if diff := cmp.Diff(oneGraded, *f.store.snapshot); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunCheckSaveFailure(t *testing.T) {
	f := newFixture(snapshotPtr(pending), oneGraded)
	saveErr := &snapshotstore.StorageError{Op: "save", Backend: "memory", Err: errors.New("disk full")}
	f.store.saveErr = saveErr

	result, err := f.checker.RunCheck(context.Background())
	require.ErrorIs(t, err, saveErr)
	require.Equal(t, StageSave, result.Stage)
	require.True(t, result.Notified)
	require.False(t, result.Saved)
	require.True(t, f.tel.HasBroken(report_checker_save))
}

func TestLastResult(t *testing.T) {
	f := newFixture(nil, pending)

	_, ok := f.checker.LastResult()
	require.False(t, ok)

	result, err := f.checker.RunCheck(context.Background())
	require.NoError(t, err)

	last, ok := f.checker.LastResult()
	require.True(t, ok)
	require.Equal(t, result.CycleID, last.CycleID)
	require.Equal(t, testNow, last.StartedAt)
	require.Equal(t, testNow, last.FinishedAt)

	f.scraper.err = &portal.TimeoutFailure{Stage: "login", Err: context.DeadlineExceeded}
	failed, _ := f.checker.RunCheck(context.Background())
	last, _ = f.checker.LastResult()
	require.Equal(t, failed.CycleID, last.CycleID)
	require.NotEqual(t, result.CycleID, last.CycleID)
	require.True(t, last.Failed())
}

func TestRunCheckReportsRenames(t *testing.T) {
	previous := grades.Snapshot{{Subject: "운영체제및실습", Grade: "-", Status: "미입력"}}
	current := grades.Snapshot{{Subject: "운영체제 및 실습", Grade: "-", Status: "미입력"}}
	f := newFixture(snapshotPtr(previous), current)

	result, err := f.checker.RunCheck(context.Background())
	require.NoError(t, err)
	// a rename is still a drop and an unentered add
	require.Equal(t, grades.NoChange, result.Kind)

	warnings := f.tel.Reports("warning")
	require.Len(t, warnings, 1)
	require.True(t, strings.HasSuffix(warnings[0].ID, report_checker_rename))
}

func TestPreview(t *testing.T) {
	f := newFixture(snapshotPtr(pending), oneGraded)

	preview, err := f.checker.Preview(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades.Updated, preview.ChangeSet.Kind)
	require.Len(t, preview.Entries, 1)
	require.Equal(t, &pending[0], preview.Entries[0].Before)

	require.Empty(t, f.transport.payloads)
	require.Equal(t, 0, f.store.saves)
	_, ok := f.checker.LastResult()
	require.False(t, ok)
}
