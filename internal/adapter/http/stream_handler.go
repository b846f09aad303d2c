package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/app/live"
	"github.com/exflikt/murchace/internal/app/orders"
	"github.com/exflikt/murchace/internal/domain"
)

// StreamHandler serves the server-sent event streams. Each connection
// attaches its own receiver to the modified-flag broadcast, re-renders its
// view on every wake-up, and pushes the fresh payload. Bursts of mutations
// coalesce into one re-render; every client still converges on current state
// because the re-render reads the database, not the event.
type StreamHandler struct {
	orders *orders.Service
	live   *live.Service
	logger zerolog.Logger
}

func NewStreamHandler(orders *orders.Service, live *live.Service, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{orders: orders, live: live, logger: logger}
}

func (h *StreamHandler) IncomingOrders(c echo.Context) error {
	return h.stream(c, func(ctx context.Context) (any, error) {
		return h.live.IncomingOrders(ctx)
	})
}

func (h *StreamHandler) IncomingItems(c echo.Context) error {
	return h.stream(c, func(ctx context.Context) (any, error) {
		return h.live.IncomingItemsByProduct(ctx)
	})
}

func (h *StreamHandler) WaitEstimates(c echo.Context) error {
	return h.stream(c, func(ctx context.Context) (any, error) {
		return h.live.WaitEstimate(ctx)
	})
}

func (h *StreamHandler) stream(c echo.Context, load func(ctx context.Context) (any, error)) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	rx := h.orders.Flags().Attach()
	defer rx.Close()

	ctx := c.Request().Context()
	if err := h.emit(c, load); err != nil {
		return err
	}

	for {
		flag, err := rx.Recv(ctx)
		if err != nil {
			// Client disconnected; not an error worth surfacing.
			return nil
		}
		if err := h.emit(c, load); err != nil {
			h.logger.Warn().Err(err).Str("path", c.Path()).Msg("stream emit failed")
			return nil
		}
		// The notify event cues the client sound on new and put-back orders
		// only; supplying or resolving stays silent.
		if flag.Has(domain.FlagIncoming | domain.FlagPutBack) {
			if _, err := fmt.Fprint(resp, "event: notify\ndata: {}\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func (h *StreamHandler) emit(c echo.Context, load func(ctx context.Context) (any, error)) error {
	view, err := load(c.Request().Context())
	if err != nil {
		return err
	}
	body, err := json.Marshal(view)
	if err != nil {
		return err
	}
	resp := c.Response()
	if _, err := fmt.Fprintf(resp, "data: %s\n\n", body); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
