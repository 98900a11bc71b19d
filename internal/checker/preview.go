package checker

import (
	"context"
	"fmt"

	"gradewatch/internal/grades"
)

// Preview is what a cycle would report right now.
type Preview struct {
	ChangeSet grades.ChangeSet
	Entries   []grades.Change
	Renames   []grades.Rename
	Current   grades.Snapshot
}

// Preview scrapes and compares against the baseline without notifying or
// saving anything, it does not count as a cycle.
func (c *Checker) Preview(ctx context.Context) (Preview, error) {
	current, err := c.scraper.Scrape(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("scrape: %w", err)
	}
	err = current.Validate()
	if err != nil {
		return Preview{}, fmt.Errorf("scrape returned an invalid snapshot: %w", err)
	}

	stored, found, err := c.store.Load(ctx)
	if err != nil {
		return Preview{}, err
	}
	var previous *grades.Snapshot
	var renames []grades.Rename
	if found {
		previous = &stored
		renames = grades.SuggestRenames(stored, current)
	}

	cs := grades.Detect(previous, current)
	return Preview{
		ChangeSet: cs,
		Entries:   grades.DiffEntries(previous, cs),
		Renames:   renames,
		Current:   current,
	}, nil
}
