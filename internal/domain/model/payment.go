package model

import "time"

// 決済ゲートウェイの承認記録。payment_keyはゲートウェイ採番で一意。
type Payment struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentKey     string     `gorm:"type:varchar(200);not null;uniqueIndex" json:"payment_key"`
	GatewayOrderID string     `gorm:"type:varchar(100);not null;index" json:"gateway_order_id"`
	Method         string     `gorm:"type:varchar(50)" json:"method"`
	Status         string     `gorm:"type:varchar(30);not null" json:"status"`
	TotalAmount    int64      `gorm:"not null" json:"total_amount"`
	RequestedAt    time.Time  `gorm:"not null" json:"requested_at"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`

	// 対応する注文（値のみ保持）
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 返金記録。リトライしても1決済につき1行。
type Refund struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RefundKey   string     `gorm:"type:varchar(200);not null;uniqueIndex" json:"refund_key"`
	Amount      int64      `gorm:"not null" json:"amount"`
	Reason      string     `gorm:"type:varchar(500)" json:"reason"`
	Status      string     `gorm:"type:varchar(30);not null" json:"status"`
	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`

	PaymentID  int64  `gorm:"not null;index" json:"payment_id"`
	PaymentKey string `gorm:"type:varchar(200);not null;index" json:"payment_key"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
