package repository

import (
	"context"
	"errors"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// FOR UPDATEで行ロック。呼び出し側はproduct_id昇順でロックすること（デッドロック回避）。
func (r *ProductGormRepository) FindByIDForUpdate(ctx context.Context, id int64, status model.ProductStatus) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", id, status).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 在庫が足りるときだけ減らす
func (r *ProductGormRepository) DecreaseStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫0になったらSOLD_OUTへ
func (r *ProductGormRepository) MarkSoldOutIfEmpty(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock = 0 AND status = ?", productID, model.ProductStatusOnSale).
		Update("status", model.ProductStatusSoldOut).Error
}
