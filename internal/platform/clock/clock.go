// Package clock supplies "now" to the domain so date rules can be tested
// against a fixed day.
package clock

import (
	"sync"
	"time"
)

const DateLayout = "2006-01-02"

type Clock interface{ Now() time.Time }

// Real reads the wall clock in Loc (UTC when nil).
type Real struct{ Loc *time.Location }

func (r Real) Now() time.Time {
	if r.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(r.Loc)
}

// Fixed is a settable clock for tests and one-shot jobs.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

func (f *Fixed) AddDays(n int) {
	f.mu.Lock()
	f.t = f.t.AddDate(0, 0, n)
	f.mu.Unlock()
}

// Today is the civil date of c.Now(), normalised to midnight UTC so it
// compares equal to DATE columns read with loc=UTC.
func Today(c Clock) time.Time { return DateOf(c.Now()) }

func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EpochDay is the number of days since 1970-01-01 of t's civil date.
func EpochDay(t time.Time) int64 {
	return DateOf(t).Unix() / 86400
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }
