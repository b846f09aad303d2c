package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/exflikt/murchace/internal/app/register"
	"github.com/exflikt/murchace/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// fail maps domain errors onto HTTP statuses. Anything unrecognized is a 500
// with the message withheld from the client.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, register.ErrEmptySession):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
