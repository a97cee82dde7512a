package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

const (
	MinMinute = 0
	MaxMinute = 59
	MinHour   = 0
	MaxHour   = 23
	MinDay    = 1
	MaxDay    = 31

	wildcard = "*"
)

var (
	ErrSpecIsNotConstructed = errors.New("Spec must be created via NewSpec or ParseSpec")
	ErrMalformedSpec        = errors.New("malformed schedule spec")
)

// Spec is a normalized schedule descriptor: minute, hour and day of month, with
// month and weekday fixed to "any".
type Spec struct {
	minute     int
	hour       int
	dayOfMonth int

	guard guard.ConstructorGuard
}

// NewSpec validates every field against its calendar range.
func NewSpec(minute, hour, dayOfMonth int) (Spec, error) {
	if err := errors.Join(
		checkRange("minute", minute, MinMinute, MaxMinute),
		checkRange("hour", hour, MinHour, MaxHour),
		checkRange("dayOfMonth", dayOfMonth, MinDay, MaxDay),
	); err != nil {
		return Spec{}, err
	}

	return Spec{
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

// MustSpec is NewSpec for values known to be valid.
func MustSpec(minute, hour, dayOfMonth int) Spec {
	s, err := NewSpec(minute, hour, dayOfMonth)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSpec reads "minute hour day * *". Only numeric minute, hour and day
// fields are accepted; month and weekday must be wildcards.
func ParseSpec(expr string) (Spec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Spec{}, fmt.Errorf("%w: %q has %d fields, want 5", ErrMalformedSpec, expr, len(fields))
	}
	if fields[3] != wildcard || fields[4] != wildcard {
		return Spec{}, fmt.Errorf("%w: %q must use wildcards for month and weekday", ErrMalformedSpec, expr)
	}

	values := make([]int, 3)
	for i, name := range []string{"minute", "hour", "dayOfMonth"} {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %s %q is not a number", ErrMalformedSpec, name, fields[i])
		}
		values[i] = v
	}

	spec, err := NewSpec(values[0], values[1], values[2])
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %w", ErrMalformedSpec, err)
	}
	return spec, nil
}

func (s Spec) Validate() error {
	return s.guard.Validate(ErrSpecIsNotConstructed)
}

func (s Spec) Minute() int {
	return s.minute
}

func (s Spec) Hour() int {
	return s.hour
}

func (s Spec) DayOfMonth() int {
	return s.dayOfMonth
}

// String renders the five-field cron expression.
func (s Spec) String() string {
	return fmt.Sprintf("%d %d %d * *", s.minute, s.hour, s.dayOfMonth)
}

// IsEqual compares field values only.
func (s Spec) IsEqual(other Spec) bool {
	return s.minute == other.minute && s.hour == other.hour && s.dayOfMonth == other.dayOfMonth
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return errs.NewValueIsOutOfRangeError(name, v, lo, hi)
	}
	return nil
}
