package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the operations of openapi.yaml.
type ServerInterface interface {
	// (POST /api/bill)
	CreateBillingPlan(ctx echo.Context) error
	// (POST /api/bill/preview)
	PreviewBillingPlan(ctx echo.Context) error
	// (GET /api/jobs)
	GetJobs(ctx echo.Context, params GetJobsParams) error
	// (POST /api/jobs/fail)
	FailJobs(ctx echo.Context) error
	// (DELETE /api/jobs/{userId})
	DeleteUserJobs(ctx echo.Context, userID int64) error
	// (POST /api/jobs/{jobId}/retry)
	RetryJob(ctx echo.Context, jobID int64) error
}

// ServerInterfaceWrapper binds path and query parameters before calling the
// handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) CreateBillingPlan(ctx echo.Context) error {
	return w.Handler.CreateBillingPlan(ctx)
}

func (w *ServerInterfaceWrapper) PreviewBillingPlan(ctx echo.Context) error {
	return w.Handler.PreviewBillingPlan(ctx)
}

func (w *ServerInterfaceWrapper) GetJobs(ctx echo.Context) error {
	var params GetJobsParams

	err := runtime.BindQueryParameter("form", true, false, "external", ctx.QueryParams(), &params.External)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter external: %s", err))
	}

	return w.Handler.GetJobs(ctx, params)
}

func (w *ServerInterfaceWrapper) FailJobs(ctx echo.Context) error {
	return w.Handler.FailJobs(ctx)
}

func (w *ServerInterfaceWrapper) DeleteUserJobs(ctx echo.Context) error {
	var userID int64

	err := runtime.BindStyledParameterWithOptions("simple", "userId", ctx.Param("userId"), &userID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter userId: %s", err))
	}

	return w.Handler.DeleteUserJobs(ctx, userID)
}

func (w *ServerInterfaceWrapper) RetryJob(ctx echo.Context) error {
	var jobID int64

	err := runtime.BindStyledParameterWithOptions("simple", "jobId", ctx.Param("jobId"), &jobID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter jobId: %s", err))
	}

	return w.Handler.RetryJob(ctx, jobID)
}

// EchoRouter is the subset of *echo.Echo and *echo.Group used for registration.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers mounts every operation of openapi.yaml on router.
func RegisterHandlers(router EchoRouter, si ServerInterface, m ...echo.MiddlewareFunc) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.POST("/api/bill", wrapper.CreateBillingPlan, m...)
	router.POST("/api/bill/preview", wrapper.PreviewBillingPlan, m...)
	router.GET("/api/jobs", wrapper.GetJobs, m...)
	router.POST("/api/jobs/fail", wrapper.FailJobs, m...)
	router.DELETE("/api/jobs/:userId", wrapper.DeleteUserJobs, m...)
	router.POST("/api/jobs/:jobId/retry", wrapper.RetryJob, m...)
}

// OapiRequestValidator rejects requests that do not match doc with 400 before
// they reach a handler.
func OapiRequestValidator(doc *openapi3.T) (echo.MiddlewareFunc, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			route, pathParams, findErr := router.FindRoute(req)
			if findErr != nil {
				// not part of the API document (health, metrics, docs)
				return next(c)
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if validationErr := openapi3filter.ValidateRequest(req.Context(), input); validationErr != nil {
				return c.JSON(http.StatusBadRequest, Error{
					Code:    http.StatusBadRequest,
					Message: validationMessage(validationErr),
				})
			}

			return next(c)
		}
	}, nil
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return fmt.Sprintf("parameter %q: %s", reqErr.Parameter.Name, reqErr.Reason)
		}
		if reqErr.Err != nil {
			return "request body: " + reqErr.Err.Error()
		}
		return reqErr.Error()
	}
	return err.Error()
}
