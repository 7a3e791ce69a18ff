package common

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DateFormatter renders epochs and times in one location with the run's layouts.
type DateFormatter struct {
	location *time.Location
	layouts  DateLayouts
}

// NewDateFormatter loads the named IANA timezone.
func NewDateFormatter(timezone string, layouts DateLayouts) (*DateFormatter, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}
	return &DateFormatter{location: loc, layouts: layouts}, nil
}

// Location returns the formatter's timezone
func (f *DateFormatter) Location() *time.Location {
	return f.location
}

// Display formats epoch seconds for a report line
func (f *DateFormatter) Display(epoch int64) string {
	return time.Unix(epoch, 0).In(f.location).Format(f.layouts.Display)
}

// DB formats t for log timestamps
func (f *DateFormatter) DB(t time.Time) string {
	return t.In(f.location).Format(f.layouts.DB)
}

// File formats t for use in a file name
func (f *DateFormatter) File(t time.Time) string {
	return t.In(f.location).Format(f.layouts.File)
}

// Now returns the current time in the formatter's location.
func (f *DateFormatter) Now() time.Time {
	return time.Now().In(f.location)
}
