package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/app/live"
	"github.com/exflikt/murchace/internal/app/orders"
)

type OrdersHandler struct {
	orders *orders.Service
	live   *live.Service
	logger zerolog.Logger
}

func NewOrdersHandler(orders *orders.Service, live *live.Service, logger zerolog.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, live: live, logger: logger}
}

func intParam(raw string) (int, error) {
	return strconv.Atoi(raw)
}

type suppliedResponse struct {
	Completed bool `json:"completed"`
}

// Supply marks one unit of the product handed out; the order may
// auto-complete as a side effect.
func (h *OrdersHandler) Supply(c echo.Context) error {
	orderID, err := intParam(c.Param("id"))
	if err != nil {
		return badRequest(c, "order id must be an integer")
	}
	productID, err := intParam(c.Param("product_id"))
	if err != nil {
		return badRequest(c, "product id must be an integer")
	}

	completed, err := h.orders.SupplyProduct(c.Request().Context(), orderID, productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, suppliedResponse{Completed: completed})
}

// Complete resolves the order as completed, supplying any remaining items.
// With ?card_response=true the freshly resolved card is returned so the
// client can swap it into the resolved column without a second request.
func (h *OrdersHandler) Complete(c echo.Context) error {
	return h.resolve(c, h.orders.CompleteOrder)
}

// Cancel resolves the order as canceled.
func (h *OrdersHandler) Cancel(c echo.Context) error {
	return h.resolve(c, h.orders.Cancel)
}

func (h *OrdersHandler) resolve(c echo.Context, op func(ctx context.Context, orderID int) error) error {
	orderID, err := intParam(c.Param("id"))
	if err != nil {
		return badRequest(c, "order id must be an integer")
	}
	if err := op(c.Request().Context(), orderID); err != nil {
		return fail(c, err)
	}

	if c.QueryParam("card_response") != "true" {
		return c.NoContent(http.StatusNoContent)
	}
	card, err := h.live.OneResolvedOrder(c.Request().Context(), orderID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

// Reset puts a resolved order back into the incoming queue.
func (h *OrdersHandler) Reset(c echo.Context) error {
	orderID, err := intParam(c.Param("id"))
	if err != nil {
		return badRequest(c, "order id must be an integer")
	}
	if err := h.orders.Reset(c.Request().Context(), orderID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Incoming returns a one-shot snapshot of the incoming order cards.
func (h *OrdersHandler) Incoming(c echo.Context) error {
	views, err := h.live.IncomingOrders(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Resolved returns the completed and canceled order cards.
func (h *OrdersHandler) Resolved(c echo.Context) error {
	views, err := h.live.ResolvedOrders(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, views)
}
