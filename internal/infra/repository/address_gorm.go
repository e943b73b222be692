package repository

import (
	"context"
	"time"

	"liveshop/internal/domain/model"

	"gorm.io/gorm"
)

type AddressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) *AddressGormRepository {
	return &AddressGormRepository{db: db}
}

// 注文のスナップショットから住所帳へ保存。失敗しても注文は成立済み（呼び出し側でログのみ）。
func (r *AddressGormRepository) SaveFromOrder(ctx context.Context, memberID int64, receiver, postcode, addrDetail string, makeDefault bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 同一内容の重複は増やさない
		var count int64
		err := tx.Model(&model.Address{}).
			Where("member_id = ? AND receiver = ? AND postcode = ? AND addr_detail = ?",
				memberID, receiver, postcode, addrDetail).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 && !makeDefault {
			return nil
		}

		if makeDefault {
			if err := tx.Model(&model.Address{}).
				Where("member_id = ?", memberID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		if count > 0 {
			// 既存行をデフォルトへ切り替えるだけ
			return tx.Model(&model.Address{}).
				Where("member_id = ? AND receiver = ? AND postcode = ? AND addr_detail = ?",
					memberID, receiver, postcode, addrDetail).
				Update("is_default", true).Error
		}

		now := time.Now()
		addr := model.Address{
			MemberID:   memberID,
			Receiver:   receiver,
			Postcode:   postcode,
			AddrDetail: addrDetail,
			IsDefault:  makeDefault,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.Create(&addr).Error
	})
}
