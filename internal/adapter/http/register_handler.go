package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/app/register"
)

// sessionCookie carries the opaque key of the cashier's open order session.
const sessionCookie = "order_session"

type RegisterHandler struct {
	register *register.Service
	logger   zerolog.Logger
}

func NewRegisterHandler(register *register.Service, logger zerolog.Logger) *RegisterHandler {
	return &RegisterHandler{register: register, logger: logger}
}

type sessionResponse struct {
	Items      []register.ItemEntry      `json:"items"`
	Summary    []register.CountedProduct `json:"summary"`
	TotalCount int                       `json:"total_count"`
	TotalPrice string                    `json:"total_price"`
}

type placedOrderResponse struct {
	OrderID    int                       `json:"order_id"`
	Summary    []register.CountedProduct `json:"summary"`
	TotalCount int                       `json:"total_count"`
	TotalPrice string                    `json:"total_price"`
}

func sessionPayload(sess *register.OrderSession) sessionResponse {
	return sessionResponse{
		Items:      sess.Items(),
		Summary:    sess.Summary(),
		TotalCount: sess.TotalCount(),
		TotalPrice: sess.TotalPriceStr(),
	}
}

// session resolves the cookie to an open session. A missing, malformed, or
// stale cookie starts a fresh session transparently: abandoned carts expire
// with the process and must not lock the cashier out.
func (h *RegisterHandler) session(c echo.Context) (uuid.UUID, *register.OrderSession, error) {
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		if key, err := uuid.Parse(cookie.Value); err == nil {
			if sess, err := h.register.Session(key); err == nil {
				return key, sess, nil
			}
		}
	}

	key := h.register.StartSession()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    key.String(),
		Path:     "/",
		HttpOnly: true,
	})
	sess, err := h.register.Session(key)
	return key, sess, err
}

// Current returns the open session, starting one when none exists.
func (h *RegisterHandler) Current(c echo.Context) error {
	_, sess, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionPayload(sess))
}

// AddItem appends one unit of ?product_id= to the session.
func (h *RegisterHandler) AddItem(c echo.Context) error {
	productID, err := intParam(c.QueryParam("product_id"))
	if err != nil {
		return badRequest(c, "product_id must be an integer")
	}

	key, _, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	sess, err := h.register.AddItem(c.Request().Context(), key, productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sessionPayload(sess))
}

// RemoveItem deletes one item instance by its id.
func (h *RegisterHandler) RemoveItem(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return badRequest(c, "item_id must be a UUID")
	}

	key, _, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	sess, err := h.register.RemoveItem(key, itemID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionPayload(sess))
}

// ClearItems empties the session.
func (h *RegisterHandler) ClearItems(c echo.Context) error {
	key, _, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	sess, err := h.register.ClearItems(key)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionPayload(sess))
}

// PlaceOrder commits the session as a new order and expires the cookie.
func (h *RegisterHandler) PlaceOrder(c echo.Context) error {
	key, _, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}

	orderID, placed, err := h.register.PlaceOrder(c.Request().Context(), key)
	if err != nil {
		return fail(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.JSON(http.StatusCreated, placedOrderResponse{
		OrderID:    orderID,
		Summary:    placed.Summary(),
		TotalCount: placed.TotalCount(),
		TotalPrice: placed.TotalPriceStr(),
	})
}
