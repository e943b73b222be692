package repository

import (
	"context"

	"liveshop/internal/domain/model"

	"gorm.io/gorm"
)

// 返金で売上が巻き戻った後に、対象ライブセールのtotal_salesを再計算する。
// 失敗しても注文側の結果には影響させない（呼び出し側でログのみ）。
type LiveSalesAggregator struct {
	db *gorm.DB
}

func NewLiveSalesAggregator(db *gorm.DB) *LiveSalesAggregator {
	return &LiveSalesAggregator{db: db}
}

func (a *LiveSalesAggregator) RefreshForOrder(ctx context.Context, orderID int64) error {
	// 注文に含まれる商品が対象のライブセール行を拾う
	var saleIDs []int64
	err := a.db.WithContext(ctx).
		Model(&model.LiveSaleProduct{}).
		Distinct("live_sale_products.id").
		Joins("JOIN order_items oi ON oi.product_id = live_sale_products.product_id").
		Where("oi.order_id = ? AND oi.deleted_at IS NULL", orderID).
		Pluck("live_sale_products.id", &saleIDs).Error
	if err != nil {
		return err
	}

	for _, saleID := range saleIDs {
		if err := a.refreshSale(ctx, saleID); err != nil {
			return err
		}
	}
	return nil
}

// 支払い済み注文の明細から売上合計を引き直す
func (a *LiveSalesAggregator) refreshSale(ctx context.Context, saleID int64) error {
	subquery := a.db.
		Table("order_items oi").
		Select("COALESCE(SUM(oi.subtotal), 0)").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("JOIN live_sale_products lsp ON lsp.product_id = oi.product_id").
		Where("lsp.id = ?", saleID).
		Where("oi.deleted_at IS NULL AND o.deleted_at IS NULL").
		Where("o.status IN ?", []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusCompleted})

	return a.db.WithContext(ctx).
		Model(&model.LiveSaleProduct{}).
		Where("id = ?", saleID).
		Update("total_sales", subquery).Error
}
