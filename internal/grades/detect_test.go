package grades

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(s Snapshot) *Snapshot {
	return &s
}

func TestDetect(t *testing.T) {
	testCases := []struct {
		name     string
		previous *Snapshot
		current  Snapshot
		expected ChangeSet
	}{
		{
			name:     "first run",
			previous: nil,
			current: Snapshot{
				{Subject: "CS101", Grade: "A", Status: "입력"},
			},
			expected: ChangeSet{Kind: FirstRun, Changed: []Record{}},
		},
		{
			name:     "first run with an empty scrape",
			previous: nil,
			current:  Snapshot{},
			expected: ChangeSet{Kind: FirstRun, Changed: []Record{}},
		},
		{
			name: "identical snapshots",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus},
				{Subject: "MATH201", Grade: "B+", Status: "입력"},
			}),
			current: Snapshot{
				{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus},
				{Subject: "MATH201", Grade: "B+", Status: "입력"},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
		{
			name: "status transition",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: NoGrade, Status: "not-entered"},
			}),
			current: Snapshot{
				{Subject: "CS101", Grade: NoGrade, Status: "entered"},
			},
			expected: ChangeSet{Kind: Updated, Changed: []Record{
				{Subject: "CS101", Grade: NoGrade, Status: "entered"},
			}},
		},
		{
			name: "grade revision",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: "A", Status: "entered"},
			}),
			current: Snapshot{
				{Subject: "CS101", Grade: "A+", Status: "entered"},
			},
			expected: ChangeSet{Kind: Updated, Changed: []Record{
				{Subject: "CS101", Grade: "A+", Status: "entered"},
			}},
		},
		{
			name: "dropped course is not a change",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: "A", Status: "entered"},
				{Subject: "PHYS110", Grade: NoGrade, Status: NotEnteredStatus},
			}),
			current: Snapshot{
				{Subject: "PHYS110", Grade: NoGrade, Status: NotEnteredStatus},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
		{
			name:     "new unentered subject is ignored",
			previous: ptr(Snapshot{}),
			current: Snapshot{
				{Subject: "MATH201", Grade: NoGrade, Status: "not-entered"},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
		{
			name:     "new subject with only a status is ignored",
			previous: ptr(Snapshot{}),
			current: Snapshot{
				{Subject: "MATH201", Grade: NoGrade, Status: "입력"},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
		{
			name:     "new subject with a grade but the not-entered status is ignored",
			previous: ptr(Snapshot{}),
			current: Snapshot{
				{Subject: "MATH201", Grade: "P", Status: NotEnteredStatus},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
		{
			name: "new graded subject is included",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: "A", Status: "entered"},
			}),
			current: Snapshot{
				{Subject: "CS101", Grade: "A", Status: "entered"},
				{Subject: "MATH201", Grade: "B+", Status: "entered"},
			},
			expected: ChangeSet{Kind: Updated, Changed: []Record{
				{Subject: "MATH201", Grade: "B+", Status: "entered"},
			}},
		},
		{
			name: "reordered rows are not a change",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: "A", Status: "entered"},
				{Subject: "MATH201", Grade: NoGrade, Status: NotEnteredStatus},
				{Subject: "ENG150", Grade: "B", Status: "entered"},
			}),
			current: Snapshot{
				{Subject: "ENG150", Grade: "B", Status: "entered"},
				{Subject: "CS101", Grade: "A", Status: "entered"},
				{Subject: "MATH201", Grade: NoGrade, Status: NotEnteredStatus},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
		{
			name: "changes keep the current order",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus},
				{Subject: "MATH201", Grade: NoGrade, Status: NotEnteredStatus},
				{Subject: "ENG150", Grade: "B", Status: "입력"},
			}),
			current: Snapshot{
				{Subject: "MATH201", Grade: "A0", Status: "입력"},
				{Subject: "ENG150", Grade: "B", Status: "입력"},
				{Subject: "CS101", Grade: "A+", Status: "입력"},
			},
			expected: ChangeSet{Kind: Updated, Changed: []Record{
				{Subject: "MATH201", Grade: "A0", Status: "입력"},
				{Subject: "CS101", Grade: "A+", Status: "입력"},
			}},
		},
		{
			name: "comparison is exact",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: "A", Status: "입력"},
			}),
			current: Snapshot{
				{Subject: "CS101", Grade: "A ", Status: "입력"},
			},
			expected: ChangeSet{Kind: Updated, Changed: []Record{
				{Subject: "CS101", Grade: "A ", Status: "입력"},
			}},
		},
		{
			name: "duplicate previous subjects, last wins",
			previous: ptr(Snapshot{
				{Subject: "CS101", Grade: "B", Status: "입력"},
				{Subject: "CS101", Grade: "A", Status: "입력"},
			}),
			current: Snapshot{
				{Subject: "CS101", Grade: "A", Status: "입력"},
			},
			expected: ChangeSet{Kind: NoChange, Changed: []Record{}},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			result := Detect(test.previous, test.current)
			diff := cmp.Diff(test.expected, result)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDetectIsPure(t *testing.T) {
	previous := Snapshot{
		{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus},
		{Subject: "MATH201", Grade: "B", Status: "입력"},
	}
	current := Snapshot{
		{Subject: "MATH201", Grade: "B+", Status: "입력"},
		{Subject: "CS101", Grade: "A", Status: "입력"},
		{Subject: "ENG150", Grade: "C", Status: "입력"},
	}
	previousCopy := append(Snapshot{}, previous...)
	currentCopy := append(Snapshot{}, current...)

	first := Detect(&previous, current)
	second := Detect(&previous, current)

	require.Equal(t, first, second)
	require.Equal(t, Updated, first.Kind)
	require.Len(t, first.Changed, 3)
	require.Equal(t, previousCopy, previous)
	require.Equal(t, currentCopy, current)
}

func TestDetectSelfIsNoChange(t *testing.T) {
	snapshots := []Snapshot{
		{},
		{{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus}},
		{
			{Subject: "자료구조", Grade: "A+", Status: "입력"},
			{Subject: "운영체제", Grade: NoGrade, Status: NotEnteredStatus},
			{Subject: "선형대수", Grade: "B0", Status: "입력"},
		},
	}
	for _, s := range snapshots {
		result := Detect(&s, s)
		require.Equal(t, NoChange, result.Kind)
		require.Empty(t, result.Changed)
	}
}

func TestDiffEntries(t *testing.T) {
	previous := Snapshot{
		{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus},
	}
	current := Snapshot{
		{Subject: "CS101", Grade: "A", Status: "입력"},
		{Subject: "MATH201", Grade: "B", Status: "입력"},
	}
	cs := Detect(&previous, current)

	expected := []Change{
		{
			Subject: "CS101",
			Before:  &Record{Subject: "CS101", Grade: NoGrade, Status: NotEnteredStatus},
			After:   Record{Subject: "CS101", Grade: "A", Status: "입력"},
		},
		{
			Subject: "MATH201",
			After:   Record{Subject: "MATH201", Grade: "B", Status: "입력"},
		},
	}
	diff := cmp.Diff(expected, DiffEntries(&previous, cs))
	if diff != "" {
		t.Fatal(diff)
	}

	require.Empty(t, DiffEntries(nil, Detect(nil, current)))
}
