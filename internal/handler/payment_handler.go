package handler

import (
	"net/http"

	"liveshop/internal/config"
	"liveshop/internal/middleware"
	"liveshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/confirm", h.confirm)
}

func (h *PaymentHandler) confirm(c echo.Context) error {
	if _, ok := getMemberIDFromContext(c); !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Confirm(c.Request().Context(), usecase.ConfirmPaymentInput{
		PaymentKey: req.PaymentKey,
		OrderRef:   req.OrderID,
		Amount:     req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}

	// ゲートウェイの応答をそのまま中継する
	return c.JSON(out.StatusCode, out.Body)
}
