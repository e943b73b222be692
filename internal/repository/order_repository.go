package repository

import (
	"context"
	"time"

	"liveshop/internal/domain/model"
)

// 販売者向け注文一覧の絞り込み
type SellerOrderListFilter struct {
	SellerID int64
	Status   *model.OrderStatus
	Page     int
	Limit    int
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByMemberID(ctx context.Context, memberID int64) ([]model.Order, error)

	// 行ロック付き取得（決済確認で使う。ロック中にゲートウェイ呼び出しはしない）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (model.Order, error)

	// 条件付き更新。現在ステータスが前提条件。影響行数を返し、0なら競合で先を越されている。
	CancelCreated(ctx context.Context, orderID, memberID int64, reason string, now time.Time) (int64, error)
	RequestRefundForPaid(ctx context.Context, orderID, memberID int64, reason string) (int64, error)
	ApproveRefund(ctx context.Context, orderID, memberID int64, now time.Time) (int64, error)
	MarkPaid(ctx context.Context, orderID int64, now time.Time) (int64, error)

	// CREATEDのままの注文をソフト削除（破棄）
	MarkCreatedDeleted(ctx context.Context, orderID, memberID int64, now time.Time) (int64, error)

	// 販売者の明細を1件以上含む注文をページングで返す
	ListSellerOrders(ctx context.Context, f SellerOrderListFilter) ([]model.Order, int64, error)
}
