package model

import "time"

// ライブ配信セールの対象商品。activeな行のsale_priceがカタログ価格より優先される。
type LiveSaleProduct struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64 `gorm:"not null;index" json:"product_id"`
	SalePrice int64 `gorm:"not null" json:"sale_price"`
	IsActive  bool  `gorm:"not null;default:false;index" json:"is_active"`

	// 売上集計（返金後に再計算される派生値）
	TotalSales int64 `gorm:"not null;default:0" json:"total_sales"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
