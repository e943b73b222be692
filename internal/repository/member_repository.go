package repository

import (
	"context"

	"liveshop/internal/domain/model"
)

type MemberRepository interface {
	Create(ctx context.Context, m model.Member) (model.Member, error)
	FindByEmail(ctx context.Context, email string) (model.Member, error)
	ExistsByID(ctx context.Context, memberID int64) (bool, error)
}

// 販売者の解決。非activeはいない扱い。
type SellerRepository interface {
	FindActiveByMemberID(ctx context.Context, memberID int64) (model.Seller, error)
}
