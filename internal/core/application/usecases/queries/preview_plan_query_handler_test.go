package queries_test

import (
	"context"
	"testing"
	"time"

	"billing/internal/adapters/out/cronexpr"
	"billing/internal/core/application/usecases/queries"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/services"
	"billing/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newPreviewHandler(t *testing.T, now func(*time.Location) time.Time) queries.PreviewPlanQueryHandler {
	t.Helper()

	calendar, err := cronexpr.NewCalendar("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	return queries.NewPreviewPlanQueryHandler(
		services.NewPlanner(services.NewSeededRandomSource(7)),
		calendar,
		fixedClock{now: now(calendar.Location())},
		kernel.Money{},
		kernel.Money{},
	)
}

func TestPreviewPlanQueryHandler_Handle(t *testing.T) {
	handler := newPreviewHandler(t, func(loc *time.Location) time.Time {
		return time.Date(2024, time.February, 10, 15, 0, 0, 0, loc)
	})

	query, err := queries.NewPreviewPlanQuery(queries.PreviewPlanParams{
		InvoiceCount: 5,
		MinTotal:     kernel.MustMoney("300000"),
		MaxTotal:     kernel.MustMoney("350000"),
	})
	require.NoError(t, err)

	resp, err := handler.Handle(context.Background(), query)

	require.NoError(t, err)
	require.Len(t, resp.Items, 5)

	amounts := make([]kernel.Money, 0, len(resp.Items))
	for _, item := range resp.Items {
		amounts = append(amounts, item.Amount)
		assert.False(t, item.DueAt.IsZero(), "every day in [11, 26] has a February occurrence")
		assert.Equal(t, time.February, item.DueAt.Month())
		assert.GreaterOrEqual(t, item.DueAt.Hour(), 7)
		assert.Equal(t, item.DueAt.Format("02/01/2006 15:04"), item.When)
		assert.NotEmpty(t, item.Spec)
	}
	assert.True(t, kernel.SumMoney(amounts).IsEqual(resp.Total))
}

func TestPreviewPlanQueryHandler_Handle_CustomHours(t *testing.T) {
	handler := newPreviewHandler(t, func(loc *time.Location) time.Time {
		return time.Date(2024, time.February, 1, 6, 0, 0, 0, loc)
	})

	startHour, endHour := 9, 10
	from := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.February, 6, 0, 0, 0, 0, time.UTC)
	query, err := queries.NewPreviewPlanQuery(queries.PreviewPlanParams{
		InvoiceCount: 2,
		MinTotal:     kernel.MustMoney("100000"),
		MaxTotal:     kernel.MustMoney("100000"),
		StartHour:    &startHour,
		EndHour:      &endHour,
		StartDate:    &from,
		EndDate:      &to,
	})
	require.NoError(t, err)

	resp, err := handler.Handle(context.Background(), query)

	require.NoError(t, err)
	assert.True(t, resp.Total.IsEqual(kernel.MustMoney("100000")))
	for _, item := range resp.Items {
		// midnight UTC is the previous evening in Buenos Aires
		assert.Contains(t, []int{4, 5}, item.DueAt.Day())
		assert.Contains(t, []int{9, 10}, item.DueAt.Hour())
	}
}

func TestPreviewPlanQueryHandler_Handle_Infeasible(t *testing.T) {
	handler := newPreviewHandler(t, func(loc *time.Location) time.Time {
		return time.Date(2024, time.February, 10, 15, 0, 0, 0, loc)
	})

	query, err := queries.NewPreviewPlanQuery(queries.PreviewPlanParams{
		InvoiceCount: 3,
		MinTotal:     kernel.MustMoney("1000"),
		MaxTotal:     kernel.MustMoney("2000"),
	})
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), query)

	require.ErrorIs(t, err, services.ErrInfeasibleDistribution)
}

func TestNewPreviewPlanQuery(t *testing.T) {
	_, err := queries.NewPreviewPlanQuery(queries.PreviewPlanParams{InvoiceCount: 0, MinTotal: kernel.MustMoney("1")})
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = queries.NewPreviewPlanQuery(queries.PreviewPlanParams{InvoiceCount: 1})
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	require.ErrorIs(t, queries.PreviewPlanQuery{}.Validate(), queries.ErrPreviewPlanQueryIsNotConstructed)
}
