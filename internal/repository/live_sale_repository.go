package repository

import "context"

// ライブセール価格の解決。activeなセール価格があればカタログ価格より優先。
type LiveSaleRepository interface {
	// activeなセール価格。無ければnil。
	FindActiveSalePrice(ctx context.Context, productID int64) (*int64, error)
}
