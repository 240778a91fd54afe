package handler

import (
    "net/http"

    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/labstack/echo/v4"
)

// CatalogHandler serves the public catalog reads: active products and
// outlets. No authentication required.
type CatalogHandler struct {
    ProductRepo *repository.ProductRepo
    OutletRepo  *repository.OutletRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(productRepo *repository.ProductRepo, outletRepo *repository.OutletRepo) *CatalogHandler {
    if productRepo == nil || outletRepo == nil {
        panic("nil dependency passed to NewCatalogHandler")
    }
    return &CatalogHandler{ProductRepo: productRepo, OutletRepo: outletRepo}
}

// ListProducts handles GET /v1/products.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
    items, err := h.ProductRepo.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load products"))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListOutlets handles GET /v1/outlets.
func (h *CatalogHandler) ListOutlets(c echo.Context) error {
    items, err := h.OutletRepo.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load outlets"))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
