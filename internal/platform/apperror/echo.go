package apperror

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Error *Error `json:"error"`
}

// HTTPErrorHandler converts service errors into the JSON error envelope.
// Unrecognized errors become opaque 500s; echo.HTTPError values raised by
// middleware (bad bindings, missing auth) pass through with their status.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if e, ok := As(err); ok {
			_ = c.JSON(e.Status(), errorBody{Error: e})
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			msg, _ := he.Message.(string)
			if msg == "" {
				msg = http.StatusText(he.Code)
			}
			kind := KindInternal
			switch he.Code {
			case http.StatusBadRequest:
				kind = KindValidation
			case http.StatusUnauthorized:
				kind = KindAuthentication
			case http.StatusForbidden:
				kind = KindAuthorization
			case http.StatusNotFound:
				kind = KindNotFound
			}
			_ = c.JSON(he.Code, errorBody{Error: &Error{Kind: kind, Code: "http_error", Message: msg}})
			return
		}

		logger.Error().Err(err).
			Str("path", c.Request().URL.Path).
			Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, errorBody{
			Error: &Error{Kind: KindInternal, Code: "internal_error", Message: "internal server error"},
		})
	}
}
