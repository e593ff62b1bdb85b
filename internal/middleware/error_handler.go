package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CustomErrorHandler turns every error escaping a handler into the standard
// {success, message, data} envelope. Internal errors are logged but never
// leaked verbatim into the message.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		} else {
			switch code {
			case http.StatusNotFound:
				message = "The resource you're looking for doesn't exist."
			case http.StatusForbidden:
				message = "You don't have permission to access this resource."
			case http.StatusUnauthorized:
				message = "Please log in to continue."
			case http.StatusBadRequest:
				message = "The request could not be processed."
			}
		}
	}

	c.Logger().Error(err)

	_ = c.JSON(code, map[string]interface{}{
		"success": false,
		"message": message,
		"data":    nil,
	})
}
