package model

import (
	"time"

	"gorm.io/gorm"
)

// 注文明細。商品名・単価・販売者は注文時点のスナップショットで、後から参照先が変わっても不変。
type OrderItem struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	ProductID int64 `gorm:"not null;index" json:"product_id"`
	SellerID  int64 `gorm:"not null;index" json:"seller_id"`

	ProductNameSnapshot string `gorm:"type:varchar(100);not null" json:"product_name"`
	UnitPriceSnapshot   int64  `gorm:"not null" json:"unit_price"`
	Quantity            int64  `gorm:"not null" json:"quantity"`

	// unit_price * quantity のスナップショット
	Subtotal int64 `gorm:"not null" json:"subtotal"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
