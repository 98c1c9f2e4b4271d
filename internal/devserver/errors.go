package devserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error      bool   `json:"error"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

func badRequest(format string, args ...any) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// errorHandler renders errors as [ErrorBody].
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := "An unexpected error occurred"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = fmt.Sprint(he.Message)
	} else {
		s.logger.Error("request failed", "path", c.Request().URL.Path, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if err := c.JSON(code, ErrorBody{Error: true, Detail: detail, StatusCode: code}); err != nil {
		s.logger.Error("failed to write error response", "error", err)
	}
}
