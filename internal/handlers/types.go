package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

// Response is the envelope every endpoint answers with: a success flag, a
// human-readable message and a data payload (possibly null).
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respondOK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondFail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message, Data: nil})
}

// respondDomainError recovers known domain errors into structured failure
// responses; anything unrecognized propagates to the central error handler.
func respondDomainError(c echo.Context, err error) error {
	if ce, ok := services.AsCouponError(err); ok {
		status := http.StatusUnprocessableEntity
		switch ce.Kind {
		case services.CouponNotFound:
			status = http.StatusNotFound
		case services.CouponAlreadyUsed:
			status = http.StatusConflict
		}
		return respondFail(c, status, ce.Error())
	}

	switch {
	case errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrEnrollmentNotFound):
		return respondFail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrInvalidTransition):
		return respondFail(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrCourseIncomplete),
		errors.Is(err, services.ErrPriceNotSet),
		errors.Is(err, services.ErrEmptyCart):
		return respondFail(c, http.StatusUnprocessableEntity, err.Error())
	}
	return err
}
