package chrono

import "time"

var seoul *time.Location

func init() {
	var err error
	seoul, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// containers without tzdata still get the right offset, KST has no DST.
		seoul = time.FixedZone("KST", 9*60*60)
	}
}

// Seoul returns the [*time.Location] the portal reports its times in.
func Seoul() *time.Location {
	return seoul
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the Asia/Seoul timezone.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(seoul)
}

// FixedTime is a TimeAPI that always returns the same instant, for tests.
type FixedTime struct {
	Time time.Time
}

func (f FixedTime) Now() time.Time {
	return f.Time
}
