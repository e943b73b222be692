package repository

import (
	"context"
	"errors"
	"time"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ListByMemberID(ctx context.Context, memberID int64) ([]model.Order, error) {
	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

// FOR UPDATE付き取得
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_number = ?", orderNumber).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// CREATED→CANCELLED。現在ステータスが条件なので同時リクエストでも二重適用されない。
func (r *OrderGormRepository) CancelCreated(ctx context.Context, orderID, memberID int64, reason string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND member_id = ? AND status = ?", orderID, memberID, model.OrderStatusCreated).
		Updates(map[string]any{
			"status": model.OrderStatusCancelled,
			// 最初の理由が勝ち
			"cancel_reason": gorm.Expr("CASE WHEN cancel_reason IS NULL OR cancel_reason = '' THEN ? ELSE cancel_reason END", reason),
			"cancelled_at":  gorm.Expr("COALESCE(cancelled_at, ?)", now),
		})
	return res.RowsAffected, res.Error
}

// PAID→REFUND_REQUESTED
func (r *OrderGormRepository) RequestRefundForPaid(ctx context.Context, orderID, memberID int64, reason string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND member_id = ? AND status = ?", orderID, memberID, model.OrderStatusPaid).
		Updates(map[string]any{
			"status":        model.OrderStatusRefundRequested,
			"cancel_reason": gorm.Expr("CASE WHEN cancel_reason IS NULL OR cancel_reason = '' THEN ? ELSE cancel_reason END", reason),
		})
	return res.RowsAffected, res.Error
}

// REFUND_REQUESTED→REFUNDED
func (r *OrderGormRepository) ApproveRefund(ctx context.Context, orderID, memberID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND member_id = ? AND status = ?", orderID, memberID, model.OrderStatusRefundRequested).
		Updates(map[string]any{
			"status":      model.OrderStatusRefunded,
			"refunded_at": gorm.Expr("COALESCE(refunded_at, ?)", now),
		})
	return res.RowsAffected, res.Error
}

// CREATED→PAID（決済確認）
func (r *OrderGormRepository) MarkPaid(ctx context.Context, orderID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusCreated).
		Updates(map[string]any{
			"status":  model.OrderStatusPaid,
			"paid_at": gorm.Expr("COALESCE(paid_at, ?)", now),
		})
	return res.RowsAffected, res.Error
}

// 未払いのまま放棄された注文をソフト削除
func (r *OrderGormRepository) MarkCreatedDeleted(ctx context.Context, orderID, memberID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND member_id = ? AND status = ? AND deleted_at IS NULL", orderID, memberID, model.OrderStatusCreated).
		Update("deleted_at", now)
	return res.RowsAffected, res.Error
}

func (r *OrderGormRepository) ListSellerOrders(ctx context.Context, f repo.SellerOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	// 自分の明細を1件以上含む注文だけ
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("orders.deleted_at IS NULL").
		Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.seller_id = ? AND oi.deleted_at IS NULL)", f.SellerID)

	if f.Status != nil {
		q = q.Where("orders.status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("orders.id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
