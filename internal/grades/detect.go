package grades

// Detect compares the current snapshot against the previous one, a nil
// previous snapshot means the checker has never saved one.
//
// Records are matched by subject, so the portal reordering rows is not a
// change. A known subject is changed when its grade or status differs. A
// subject that was not there before only counts once it is entered. Subjects
// that disappeared are not reported.
func Detect(previous *Snapshot, current Snapshot) ChangeSet {
	if previous == nil {
		return ChangeSet{Kind: FirstRun, Changed: []Record{}}
	}

	index := previous.Index()
	changed := []Record{}
	for _, curr := range current {
		prev, known := index[curr.Subject]
		if known {
			if prev.Status != curr.Status || prev.Grade != curr.Grade {
				changed = append(changed, curr)
			}
			continue
		}
		if curr.Entered() {
			changed = append(changed, curr)
		}
	}

	if len(changed) == 0 {
		return ChangeSet{Kind: NoChange, Changed: []Record{}}
	}
	return ChangeSet{Kind: Updated, Changed: changed}
}

// Change describes one changed record, Before is nil for subjects that did
// not exist in the previous snapshot.
type Change struct {
	Subject string
	Before  *Record
	After   Record
}

// DiffEntries pairs every changed record of cs with its previous value.
func DiffEntries(previous *Snapshot, cs ChangeSet) []Change {
	var index map[string]Record
	if previous != nil {
		index = previous.Index()
	}

	out := make([]Change, 0, len(cs.Changed))
	for _, after := range cs.Changed {
		c := Change{Subject: after.Subject, After: after}
		if before, ok := index[after.Subject]; ok {
			c.Before = &before
		}
		out = append(out, c)
	}
	return out
}
