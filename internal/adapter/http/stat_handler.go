package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/exflikt/murchace/internal/app/stat"
)

type StatHandler struct {
	stat *stat.Service
}

func NewStatHandler(stat *stat.Service) *StatHandler {
	return &StatHandler{stat: stat}
}

func (h *StatHandler) Summary(c echo.Context) error {
	summary, err := h.stat.Summarize(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ExportCSV streams the raw order log as a CSV download.
func (h *StatHandler) ExportCSV(c echo.Context) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	resp.WriteHeader(http.StatusOK)
	return h.stat.ExportOrdersCSV(c.Request().Context(), resp)
}
