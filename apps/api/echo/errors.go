package echoapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// fieldErrors flattens validation errors to {field: message}.
// Messages reported more than once for the same field are joined.
func fieldErrors(err error, translator ut.Translator) (map[string]string, bool) {
	add := func(m map[string]string, field, msg string) {
		if prev, ok := m[field]; ok {
			m[field] = prev + "; " + msg
			return
		}
		m[field] = msg
	}

	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			add(fldErrs, vErr.Field(), vErr.Translate(translator))
		}
		return fldErrs, true
	case *core.ValidationError:
		fldErrs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			add(fldErrs, fErr.Field, fErr.Error)
		}
		return fldErrs, true
	}
	return nil, false
}

func isNotFound(err error) bool {
	switch errors.Cause(err) {
	case student.ErrNotFound, school.ErrNotFound, reference.ErrUnknownKind, user.ErrNotFound:
		return true
	}
	return false
}

func isAPIRequest(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().URL.Path, apiPrefix+"/") || ctx.Request().URL.Path == apiPrefix
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// API requests get JSON, dashboard requests get the error page.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if fldErrs, ok := fieldErrors(err, translator); ok {
			code = http.StatusBadRequest
			if len(fldErrs) > 0 {
				message = fldErrs
			} else {
				message = err.Error()
			}
		} else if isNotFound(err) {
			code = http.StatusNotFound
			message = errors.Cause(err).Error()
		} else if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			if herr.Internal != nil {
				if internal, ok := herr.Internal.(*echo.HTTPError); ok {
					herr = internal
				}
			}
			code = herr.Code
			message = herr.Message
		} else if core.IsDegraded(err) {
			code = http.StatusServiceUnavailable
			message = err.Error()
		} else { // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if usr, ok := contextOperator(ctx); ok {
				args = append(args, usr)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else if isAPIRequest(ctx) {
			if m, ok := message.(string); ok {
				message = echo.Map{"error": m}
			}
			err = ctx.JSON(code, message)
		} else {
			err = render(ctx, code, "error", &page{
				Title: http.StatusText(code),
				Data:  errorPage{Code: code, Message: errorText(message)},
			})
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

type errorPage struct {
	Code    int
	Message string
}

func errorText(message interface{}) string {
	switch m := message.(type) {
	case string:
		return m
	case map[string]string:
		parts := make([]string, 0, len(m))
		for field, msg := range m {
			parts = append(parts, field+": "+msg)
		}
		sort.Strings(parts)
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(m)
	}
}
