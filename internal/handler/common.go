package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/middleware"
	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns a message naming the first failing fields.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", service.ErrValidation, strings.Join(msgs, ", "))
}

// bind decodes the body into dst and runs the echo validator if one is
// installed. Errors are already mapped to service.ErrValidation.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: invalid body", service.ErrValidation)
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(dst); err != nil {
		if errors.Is(err, service.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

// writeError maps service sentinels onto status codes. Anything else is
// logged with the request id and reported as a bare 500.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err)
		msg := "internal server error"
		if status == http.StatusGatewayTimeout {
			msg = "request timed out"
		}
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return id, nil
}

func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return 0, fmt.Errorf("%w: authentication required", service.ErrUnauthorized)
	}
	return id, nil
}

func isAdmin(c echo.Context) bool {
	return middleware.CurrentRole(c) == model.RoleAdmin
}

// queryBool reads an optional boolean query parameter.
func queryBool(c echo.Context, name string) (bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", service.ErrValidation, name)
	}
	return b, nil
}

// queryInt reads an optional integer query parameter, returning def when
// absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", service.ErrValidation, name)
	}
	return n, nil
}
