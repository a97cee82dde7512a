package http

import (
	"errors"
	"net/http"

	"billing/internal/core/application/usecases/commands"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/domain/services"
	"billing/internal/core/ports"
	"billing/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// statusFor maps use case errors onto HTTP status codes. A failed attempt
// wraps the collaborator's error, so gateway errors are checked first.
func statusFor(err error) int {
	switch {
	case errors.Is(err, commands.ErrInvoicingService),
		errors.Is(err, commands.ErrCredentialsUnavailable),
		errors.Is(err, commands.ErrUserUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrJobNotClaimable):
		return http.StatusConflict
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, services.ErrInfeasibleDistribution),
		errors.Is(err, services.ErrInputRange),
		errors.Is(err, schedule.ErrMalformedSpec),
		errors.Is(err, ports.ErrNoFutureOccurrence):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(ctx echo.Context, err error) error {
	code := statusFor(err)

	message := err.Error()
	if code == http.StatusInternalServerError {
		ctx.Logger().Errorf("request failed: %v", err)
		message = http.StatusText(code)
	}

	return ctx.JSON(code, Error{Code: code, Message: message})
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}
