package repository

import (
	"context"
	"time"

	"liveshop/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)

	// 販売者向け：自分の明細だけを返す
	ListByOrderIDAndSellerID(ctx context.Context, orderID, sellerID int64) ([]model.OrderItem, error)
	ListByOrderIDsAndSellerID(ctx context.Context, orderIDs []int64, sellerID int64) ([]model.OrderItem, error)
	ExistsByOrderIDAndSellerID(ctx context.Context, orderID, sellerID int64) (bool, error)

	// 注文破棄と同時に明細もソフト削除
	MarkDeletedByOrderID(ctx context.Context, orderID int64, now time.Time) error
}
