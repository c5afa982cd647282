package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/middleware"
	"github.com/hivecinema/hive/internal/model"
)

// Problem is the problem-details error body every failing endpoint returns.
type Problem struct {
	Status   int    `json:"status"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

// NewErrorHandler returns the Echo error handler that renders domain faults
// as problem-details.  Handlers return classified errors and never write
// error bodies themselves.  Internal faults are logged with their cause and
// rendered without it.
func NewErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		title := fault.KindInternal.String()
		detail := "an unexpected error occurred"

		switch e := err.(type) {
		case *echo.HTTPError:
			status = e.Code
			title = http.StatusText(e.Code)
			if msg, ok := e.Message.(string); ok {
				detail = msg
			}
		default:
			kind := fault.KindOf(err)
			status = kind.HTTPStatus()
			title = kind.String()
			if kind != fault.KindInternal {
				detail = err.Error()
			}
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
		}
		_ = c.JSON(status, Problem{
			Status:   status,
			Title:    title,
			Detail:   detail,
			Instance: c.Request().URL.Path,
		})
	}
}

// principal extracts the verified principal or fails with an unauthorized
// fault for routes that somehow bypassed the auth middleware.
func principal(c echo.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, fault.Unauthorized("authentication required")
	}
	return p, nil
}
