package ephem

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoEvent is returned when the sun does not cross the requested altitude
// within the search span, e.g. during polar day or polar night.
var ErrNoEvent = errors.New("sun does not cross the requested altitude")

// Error reports an ephemeris computation that is impossible for the given
// site and time. It is fatal to the operation that requested it only.
type Error struct {
	Op   string
	Site string
	Time time.Time
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ephemeris %s at %s (%s): %v", e.Op, e.Site, e.Time.UTC().Format(time.RFC3339), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
