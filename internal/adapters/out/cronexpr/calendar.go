// Package cronexpr evaluates schedule specs with github.com/robfig/cron/v3 in a
// fixed operating timezone.
package cronexpr

import (
	"fmt"
	"time"

	"billing/internal/core/domain/model/schedule"

	"github.com/robfig/cron/v3"
)

const (
	// firstLookback is the initial window searched backwards by Prev.
	firstLookback = time.Hour

	// maxLookback bounds Prev. robfig/cron gives up on Next after five years too.
	maxLookback = 5 * 366 * 24 * time.Hour
)

// Calendar implements ports.Calendar.
type Calendar struct {
	loc    *time.Location
	parser cron.Parser
}

// NewCalendar builds a calendar for the named IANA timezone.
func NewCalendar(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return NewCalendarInLocation(loc), nil
}

func NewCalendarInLocation(loc *time.Location) *Calendar {
	return &Calendar{
		loc:    loc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Next returns the first occurrence strictly after t.
func (c *Calendar) Next(spec schedule.Spec, t time.Time) (time.Time, bool) {
	sched, err := c.schedule(spec)
	if err != nil {
		return time.Time{}, false
	}

	next := sched.Next(t.In(c.loc))
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// Prev returns the last occurrence strictly before t. robfig/cron only walks
// forward, so Prev replays Next over a window that doubles until it contains
// an occurrence.
func (c *Calendar) Prev(spec schedule.Spec, t time.Time) (time.Time, bool) {
	sched, err := c.schedule(spec)
	if err != nil {
		return time.Time{}, false
	}

	t = t.In(c.loc)
	for window := firstLookback; window <= maxLookback; window *= 2 {
		var last time.Time
		for cur := sched.Next(t.Add(-window)); !cur.IsZero() && cur.Before(t); cur = sched.Next(cur) {
			last = cur
		}
		if !last.IsZero() {
			return last, true
		}
	}

	return time.Time{}, false
}

func (c *Calendar) schedule(spec schedule.Spec) (cron.Schedule, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	sched, err := c.parser.Parse(spec.String())
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", spec.String(), err)
	}

	if s, ok := sched.(*cron.SpecSchedule); ok {
		s.Location = c.loc
	}
	return sched, nil
}
