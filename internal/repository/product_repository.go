package repository

import (
	"context"

	"liveshop/internal/domain/model"
)

// 商品の在庫行が排他ロックの単位。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)

	// FOR UPDATEで行ロックして取得。指定ステータス以外はErrNotFound。
	FindByIDForUpdate(ctx context.Context, id int64, status model.ProductStatus) (model.Product, error)

	// 在庫が足りるときだけ減算（stock >= qty が条件）
	DecreaseStock(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫0になった商品をSOLD_OUTへ
	MarkSoldOutIfEmpty(ctx context.Context, productID int64) error
}
