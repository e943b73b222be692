package repository

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 一意制約違反（注文番号など）。insert時のDB制約が最終ガード。
var ErrDuplicate = errors.New("duplicate key")

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Products() ProductRepository
	LiveSales() LiveSaleRepository
	Payments() PaymentRepository
	Refunds() RefundRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
