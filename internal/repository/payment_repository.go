package repository

import (
	"context"

	"liveshop/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)

	// 同じキーなら同じ結果（リトライ安全）
	FindByPaymentKey(ctx context.Context, paymentKey string) (model.Payment, bool, error)

	// 注文ID・注文番号どちらで紐付いていても引けるように
	FindByOrderRef(ctx context.Context, orderID int64, orderNumber string) (model.Payment, bool, error)

	UpdateStatus(ctx context.Context, paymentKey string, status string) error
}

type RefundRepository interface {
	Create(ctx context.Context, r model.Refund) (int64, error)
	ExistsByPaymentKey(ctx context.Context, paymentKey string) (bool, error)
}
