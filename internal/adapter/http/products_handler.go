package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

type ProductsHandler struct {
	products interfaces.ProductRepository
	logger   zerolog.Logger
}

func NewProductsHandler(products interfaces.ProductRepository, logger zerolog.Logger) *ProductsHandler {
	return &ProductsHandler{products: products, logger: logger}
}

type productRequest struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	Price     int    `json:"price"`
	NoStock   *int   `json:"no_stock"`
}

type productResponse struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	Price     int    `json:"price"`
	PriceStr  string `json:"price_str"`
	NoStock   *int   `json:"no_stock,omitempty"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ProductID: p.ProductID,
		Name:      p.Name,
		Filename:  p.Filename,
		Price:     p.Price,
		PriceStr:  p.PriceStr(),
		NoStock:   p.NoStock,
	}
}

func (r productRequest) validate() string {
	switch {
	case r.ProductID <= 0:
		return "product_id must be positive"
	case r.Name == "":
		return "name is required"
	case r.Price < 0:
		return "price must not be negative"
	default:
		return ""
	}
}

func (h *ProductsHandler) List(c echo.Context) error {
	products, err := h.products.SelectAll(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Get(c echo.Context) error {
	productID, err := intParam(c.Param("id"))
	if err != nil {
		return badRequest(c, "product id must be an integer")
	}
	p, err := h.products.ByProductID(c.Request().Context(), productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(*p))
}

func (h *ProductsHandler) Create(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}

	p, err := h.products.Insert(c.Request().Context(), domain.Product{
		ProductID: req.ProductID,
		Name:      req.Name,
		Filename:  req.Filename,
		Price:     req.Price,
		NoStock:   req.NoStock,
	})
	if err != nil {
		return fail(c, err)
	}
	h.logger.Info().Int("product_id", p.ProductID).Msg("product created")
	return c.JSON(http.StatusCreated, toProductResponse(*p))
}

func (h *ProductsHandler) Update(c echo.Context) error {
	productID, err := intParam(c.Param("id"))
	if err != nil {
		return badRequest(c, "product id must be an integer")
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}

	p, err := h.products.Update(c.Request().Context(), productID, domain.Product{
		ProductID: req.ProductID,
		Name:      req.Name,
		Filename:  req.Filename,
		Price:     req.Price,
		NoStock:   req.NoStock,
	})
	if err != nil {
		return fail(c, err)
	}
	h.logger.Info().Int("product_id", p.ProductID).Msg("product updated")
	return c.JSON(http.StatusOK, toProductResponse(*p))
}

func (h *ProductsHandler) Delete(c echo.Context) error {
	productID, err := intParam(c.Param("id"))
	if err != nil {
		return badRequest(c, "product id must be an integer")
	}
	if err := h.products.Delete(c.Request().Context(), productID); err != nil {
		return fail(c, err)
	}
	h.logger.Info().Int("product_id", productID).Msg("product deleted")
	return c.NoContent(http.StatusNoContent)
}
