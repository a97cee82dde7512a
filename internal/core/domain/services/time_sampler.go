package services

import (
	"errors"
	"fmt"

	"billing/internal/core/domain/model/schedule"
)

// ErrInputRange is returned when a sampling window is empty or outside the calendar.
var ErrInputRange = errors.New("input range error")

// TimeSampler draws random schedule specs. Duplicate specs are possible and are
// kept: two invoices may be due in the same minute.
type TimeSampler struct {
	rnd RandomSource
}

func NewTimeSampler(rnd RandomSource) TimeSampler {
	return TimeSampler{rnd: rnd}
}

// Sample returns count specs with minute in [0,59], hour in [startHour,endHour]
// and day of month in [startDay,endDay].
func (s TimeSampler) Sample(count, startHour, endHour, startDay, endDay int) ([]schedule.Spec, error) {
	if err := validateWindow(count, startHour, endHour, startDay, endDay); err != nil {
		return nil, err
	}

	specs := make([]schedule.Spec, 0, count)
	for range count {
		spec, err := schedule.NewSpec(
			intBetween(s.rnd, schedule.MinMinute, schedule.MaxMinute),
			intBetween(s.rnd, startHour, endHour),
			intBetween(s.rnd, startDay, endDay),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputRange, err)
		}
		specs = append(specs, spec)
	}

	return specs, nil
}

func validateWindow(count, startHour, endHour, startDay, endDay int) error {
	switch {
	case count <= 0:
		return fmt.Errorf("%w: count %d is not greater than 0", ErrInputRange, count)
	case startHour > endHour:
		return fmt.Errorf("%w: startHour %d is after endHour %d", ErrInputRange, startHour, endHour)
	case startDay > endDay:
		return fmt.Errorf("%w: startDay %d is after endDay %d", ErrInputRange, startDay, endDay)
	case startHour < schedule.MinHour || endHour > schedule.MaxHour:
		return fmt.Errorf("%w: hours [%d, %d] outside [%d, %d]",
			ErrInputRange, startHour, endHour, schedule.MinHour, schedule.MaxHour)
	case startDay < schedule.MinDay || endDay > schedule.MaxDay:
		return fmt.Errorf("%w: days [%d, %d] outside [%d, %d]",
			ErrInputRange, startDay, endDay, schedule.MinDay, schedule.MaxDay)
	}
	return nil
}
