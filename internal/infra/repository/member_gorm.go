package repository

import (
	"context"
	"errors"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"

	"gorm.io/gorm"
)

type MemberGormRepository struct {
	db *gorm.DB
}

func NewMemberGormRepository(db *gorm.DB) *MemberGormRepository {
	return &MemberGormRepository{db: db}
}

func (r *MemberGormRepository) Create(ctx context.Context, m model.Member) (model.Member, error) {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Member{}, repo.ErrDuplicate
		}
		return model.Member{}, err
	}
	return m, nil
}

func (r *MemberGormRepository) FindByEmail(ctx context.Context, email string) (model.Member, error) {
	var m model.Member
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Member{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Member{}, err
	}
	return m, nil
}

func (r *MemberGormRepository) ExistsByID(ctx context.Context, memberID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("id = ? AND is_active = ?", memberID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type SellerGormRepository struct {
	db *gorm.DB
}

func NewSellerGormRepository(db *gorm.DB) *SellerGormRepository {
	return &SellerGormRepository{db: db}
}

func (r *SellerGormRepository) FindActiveByMemberID(ctx context.Context, memberID int64) (model.Seller, error) {
	var s model.Seller
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND is_active = ?", memberID, true).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Seller{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Seller{}, err
	}
	return s, nil
}
