package services

import (
	"errors"
	"fmt"

	"billing/internal/core/domain/model/kernel"
	"billing/internal/pkg/errs"
)

var (
	// ErrInfeasibleDistribution is returned when no split can satisfy the bounds.
	ErrInfeasibleDistribution = errors.New("infeasible distribution")

	// ErrDistributionBoundsViolation is returned when a generated part escapes
	// [minPart, maxPart]. It signals a broken loop invariant.
	ErrDistributionBoundsViolation = errors.New("distribution bounds violation")
)

// Partitioner splits a target total into a fixed number of random amounts.
//
// All arithmetic happens in integer cents, so the parts add up to the total
// exactly; the last part takes the remainder instead of a random draw.
//
// Example:
//
//	p := services.NewPartitioner(services.NewRandomSource())
//	parts, err := p.Split(kernel.MustMoney("3000000"), 60, kernel.MustMoney("35000"), kernel.MustMoney("135000"))
//	if errors.Is(err, services.ErrInfeasibleDistribution) {
//	    // total/count is outside [minPart, maxPart]
//	}
type Partitioner struct {
	rnd RandomSource
}

func NewPartitioner(rnd RandomSource) Partitioner {
	return Partitioner{rnd: rnd}
}

// Split returns count amounts in [minPart, maxPart] whose sum equals total.
func (p Partitioner) Split(total kernel.Money, count int, minPart, maxPart kernel.Money) ([]kernel.Money, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrInfeasibleDistribution,
			errs.NewValueIsInvalidErrorWithCause("count", fmt.Errorf("%d is not greater than 0", count)))
	}
	if !minPart.IsPositive() {
		return nil, errs.NewValueIsInvalidErrorWithCause("minPart", fmt.Errorf("%s is not greater than 0", minPart))
	}
	if minPart.Cmp(maxPart) > 0 {
		return nil, fmt.Errorf("%w: minPart %s is greater than maxPart %s", ErrInfeasibleDistribution, minPart, maxPart)
	}

	lo, hi := minPart.Cents(), maxPart.Cents()
	remaining := total.Cents()
	n := int64(count)

	if lo*n > remaining || hi*n < remaining {
		return nil, fmt.Errorf("%w: %s split into %d parts leaves each part outside [%s, %s]",
			ErrInfeasibleDistribution, total, count, minPart, maxPart)
	}

	parts := make([]kernel.Money, 0, count)
	for i := int64(0); i < n; i++ {
		left := n - i
		if left == 1 {
			parts = append(parts, kernel.MoneyFromCents(remaining))
			break
		}

		lower := max(lo, remaining-hi*(left-1))
		upper := min(hi, remaining-lo*(left-1))
		part := int64Between(p.rnd, lower, upper)

		parts = append(parts, kernel.MoneyFromCents(part))
		remaining -= part
	}

	for i, part := range parts {
		if part.Cmp(minPart) < 0 || part.Cmp(maxPart) > 0 {
			return nil, fmt.Errorf("%w: part %d is %s, bounds are [%s, %s]",
				ErrDistributionBoundsViolation, i, part, minPart, maxPart)
		}
	}

	return parts, nil
}

// RandomTotal draws a total uniformly from [minTotal, maxTotal] at cent precision.
func (p Partitioner) RandomTotal(minTotal, maxTotal kernel.Money) (kernel.Money, error) {
	if minTotal.Cmp(maxTotal) > 0 {
		return kernel.Money{}, errs.NewValueIsOutOfRangeError("minTotal", minTotal, kernel.MoneyFromCents(0), maxTotal)
	}
	return kernel.MoneyFromCents(int64Between(p.rnd, minTotal.Cents(), maxTotal.Cents())), nil
}
