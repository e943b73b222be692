package model

import (
	"time"

	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusOnSale  ProductStatus = "ON_SALE"
	ProductStatusSoldOut ProductStatus = "SOLD_OUT"
	ProductStatusHidden  ProductStatus = "HIDDEN"
)

type Product struct {
	ID       int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID int64         `gorm:"not null;index" json:"seller_id"`
	Name     string        `gorm:"type:varchar(100);not null" json:"name"`
	Price    int64         `gorm:"not null" json:"price"`
	Stock    int64         `gorm:"not null" json:"stock"`
	Status   ProductStatus `gorm:"type:varchar(20);not null;default:'ON_SALE'" json:"status"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
