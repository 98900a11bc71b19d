// Package grades holds the grade data model and the logic that decides
// which changes between two scrapes of the portal are worth telling the
// student about.
package grades

import (
	"errors"
	"fmt"
)

const (
	// NotEnteredStatus is the status the portal shows until a professor
	// submits grades for a subject.
	NotEnteredStatus = "미입력"
	// NoGrade is the grade cell placeholder shown until a grade exists.
	NoGrade = "-"
)

var (
	ErrEmptySubject     = errors.New("grade record has an empty subject")
	ErrDuplicateSubject = errors.New("duplicate subject in snapshot")
)

// Record is a single row of the grade table.
type Record struct {
	Subject string `json:"subject" yaml:"subject"`
	Grade   string `json:"grade" yaml:"grade"`
	Status  string `json:"status" yaml:"status"`
}

// Entered tells if the record carries a real grade and status.
func (r Record) Entered() bool {
	return r.Status != NotEnteredStatus && r.Grade != NoGrade
}

// Snapshot is every grade record captured by one scrape, in page order.
type Snapshot []Record

// Validate checks the invariants a scraper must uphold before handing a
// snapshot to the detector.
func (s Snapshot) Validate() error {
	seen := make(map[string]int, len(s))
	for i, r := range s {
		if r.Subject == "" {
			return fmt.Errorf("row %d: %w", i, ErrEmptySubject)
		}
		if first, ok := seen[r.Subject]; ok {
			return fmt.Errorf("rows %d and %d (%q): %w", first, i, r.Subject, ErrDuplicateSubject)
		}
		seen[r.Subject] = i
	}
	return nil
}

// Index maps each subject to its record, later duplicates win.
func (s Snapshot) Index() map[string]Record {
	out := make(map[string]Record, len(s))
	for _, r := range s {
		out[r.Subject] = r
	}
	return out
}

type ChangeKind int

const (
	// FirstRun means there was no previous snapshot to compare against.
	FirstRun ChangeKind = iota
	NoChange
	Updated
)

func (k ChangeKind) String() string {
	switch k {
	case FirstRun:
		return "first_run"
	case NoChange:
		return "no_change"
	case Updated:
		return "updated"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ChangeSet is the outcome of comparing two snapshots. Changed is only
// non-empty when Kind is Updated.
type ChangeSet struct {
	Kind    ChangeKind
	Changed []Record
}
