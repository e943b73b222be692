package handler

import (
	"net/http"
	"strconv"

	"liveshop/internal/config"
	"liveshop/internal/middleware"
	"liveshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SellerOrderHandler struct {
	uc *usecase.SellerOrderUsecase
}

func NewSellerOrderHandler(uc *usecase.SellerOrderUsecase) *SellerOrderHandler {
	return &SellerOrderHandler{uc: uc}
}

func (h *SellerOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/seller/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.SellerRoleGuard())

	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

func (h *SellerOrderHandler) list(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	in := usecase.SellerOrderListInput{
		Status: c.QueryParam("status"),
	}

	// page（default 1）
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		in.Page = p
	}

	// limit（default 20）
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		in.Limit = l
	}

	out, err := h.uc.List(c.Request().Context(), memberID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SellerOrderHandler) detail(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Detail(c.Request().Context(), memberID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
