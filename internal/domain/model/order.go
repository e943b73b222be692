package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusCancelRequested OrderStatus = "CANCEL_REQUESTED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusRefundRequested OrderStatus = "REFUND_REQUESTED"
	OrderStatusRefundRejected  OrderStatus = "REFUND_REJECTED"
	OrderStatusRefunded        OrderStatus = "REFUNDED"
)

// ステータス遷移が不正な場合のエラー
var ErrInvalidTransition = errors.New("invalid status transition")

// 許可される遷移表。ここに無い遷移は全部不正。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:         {OrderStatusPaid, OrderStatusCancelRequested},
	OrderStatusPaid:            {OrderStatusRefundRequested},
	OrderStatusCancelRequested: {OrderStatusCancelled},
	OrderStatusRefundRequested: {OrderStatusRefunded, OrderStatusRefundRejected},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// 取消系の終端ステータスか（二重リクエストはno-opで現在値を返す）
func (s OrderStatus) IsFinalizedCancel() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusCancelRequested,
		OrderStatusCancelled, OrderStatusCompleted, OrderStatusRefundRequested,
		OrderStatusRefundRejected, OrderStatusRefunded:
		return true
	}
	return false
}

// 注文（ヘッダー）。金額・配送先は注文時点のスナップショットで、作成後は再計算しない。
type Order struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID int64 `gorm:"not null;index" json:"member_id"`

	// 外部向け注文番号（一意・採番後は不変）
	OrderNumber string `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_number"`

	// 配送先スナップショット
	Receiver   string `gorm:"type:varchar(20);not null" json:"receiver"`
	Postcode   string `gorm:"type:varchar(10);not null" json:"postcode"`
	AddrDetail string `gorm:"type:varchar(255);not null" json:"addr_detail"`

	// 金額（最小通貨単位）。order_amount = total_product_amount + shipping_fee - discount_fee
	TotalProductAmount int64 `gorm:"not null" json:"total_product_amount"`
	ShippingFee        int64 `gorm:"not null;default:0" json:"shipping_fee"`
	DiscountFee        int64 `gorm:"not null;default:0" json:"discount_fee"`
	OrderAmount        int64 `gorm:"not null" json:"order_amount"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// 取消理由（最初の理由が勝ち、上書きしない）
	CancelReason string `gorm:"type:varchar(500)" json:"cancel_reason,omitempty"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Order) TableName() string { return "orders" }

// MarkPaid はCREATED→PAID。既にPAIDならno-op。
func (o *Order) MarkPaid(now time.Time) error {
	if o.Status == OrderStatusPaid {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusPaid
	if o.PaidAt == nil {
		t := now
		o.PaidAt = &t
	}
	return nil
}

// RequestCancel はCREATED→CANCEL_REQUESTED / PAID→REFUND_REQUESTED。
func (o *Order) RequestCancel(reason string) error {
	var next OrderStatus
	switch o.Status {
	case OrderStatusCreated:
		next = OrderStatusCancelRequested
	case OrderStatusPaid:
		next = OrderStatusRefundRequested
	default:
		return ErrInvalidTransition
	}
	if o.CancelReason == "" && reason != "" {
		o.CancelReason = reason
	}
	o.Status = next
	return nil
}

// ApproveCancel はCANCEL_REQUESTED→CANCELLED。
func (o *Order) ApproveCancel(now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusCancelled
	if o.CancelledAt == nil {
		t := now
		o.CancelledAt = &t
	}
	return nil
}

// ApproveRefund はREFUND_REQUESTED→REFUNDED。
func (o *Order) ApproveRefund(now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusRefunded) {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusRefunded
	if o.RefundedAt == nil {
		t := now
		o.RefundedAt = &t
	}
	return nil
}

// RejectRefund はREFUND_REQUESTED→REFUND_REJECTED。
func (o *Order) RejectRefund() error {
	if !o.Status.CanTransitionTo(OrderStatusRefundRejected) {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusRefundRejected
	return nil
}
