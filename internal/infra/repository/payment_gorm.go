package repository

import (
	"context"
	"errors"
	"strconv"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return p.ID, nil
}

func (r *PaymentGormRepository) FindByPaymentKey(ctx context.Context, paymentKey string) (model.Payment, bool, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("payment_key = ?", paymentKey).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, false, nil
	}
	if err != nil {
		return model.Payment{}, false, err
	}
	return p, true, nil
}

// 注文ID・注文番号どちらの紐付けでも引けるように両方で探す
func (r *PaymentGormRepository) FindByOrderRef(ctx context.Context, orderID int64, orderNumber string) (model.Payment, bool, error) {
	refs := []string{strconv.FormatInt(orderID, 10)}
	if orderNumber != "" {
		refs = append(refs, orderNumber)
	}

	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? OR gateway_order_id IN ?", orderID, refs).
		Order("id desc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, false, nil
	}
	if err != nil {
		return model.Payment{}, false, err
	}
	return p, true, nil
}

func (r *PaymentGormRepository) UpdateStatus(ctx context.Context, paymentKey string, status string) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_key = ?", paymentKey).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type RefundGormRepository struct {
	db *gorm.DB
}

func NewRefundGormRepository(db *gorm.DB) *RefundGormRepository {
	return &RefundGormRepository{db: db}
}

func (r *RefundGormRepository) Create(ctx context.Context, refund model.Refund) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&refund).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return refund.ID, nil
}

func (r *RefundGormRepository) ExistsByPaymentKey(ctx context.Context, paymentKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Refund{}).
		Where("payment_key = ?", paymentKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
