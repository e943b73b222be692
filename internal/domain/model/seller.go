package model

import "time"

// 販売者。注文明細のseller_idはここのIDのスナップショット。
type Seller struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID  int64  `gorm:"not null;uniqueIndex" json:"member_id"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
