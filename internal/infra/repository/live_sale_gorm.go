package repository

import (
	"context"
	"errors"

	"liveshop/internal/domain/model"

	"gorm.io/gorm"
)

type LiveSaleGormRepository struct {
	db *gorm.DB
}

func NewLiveSaleGormRepository(db *gorm.DB) *LiveSaleGormRepository {
	return &LiveSaleGormRepository{db: db}
}

// activeなセール価格があれば返す。無ければnil（通常価格を使う）。
func (r *LiveSaleGormRepository) FindActiveSalePrice(ctx context.Context, productID int64) (*int64, error) {
	var sale model.LiveSaleProduct
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("id desc").
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale.SalePrice, nil
}
