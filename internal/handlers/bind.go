package handlers

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BindRequest binds and validates a request of type T from c (query string,
// path params, and/or body depending on T's tags), grounded on
// lotus/pkg/utils/validate.go's ValidateArguments.
func BindRequest[T any](c echo.Context) (T, error) {
	var req T
	if err := c.Bind(&req); err != nil {
		return req, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}
	// echo's Bind reads the query string only for GET, DELETE and HEAD;
	// bind it explicitly for the other methods.
	switch c.Request().Method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
	default:
		if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
			return req, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
		}
	}
	if err := validate.Struct(req); err != nil {
		return req, httperror.NewHTTPError(http.StatusBadRequest, validationErrorToString(err))
	}
	return req, nil
}

func validationErrorToString(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msg := ""
	for _, fe := range verrs {
		msg += fmt.Sprintf("field '%s' failed rule '%s'; ", fe.Field(), fe.Tag())
	}
	return msg
}
