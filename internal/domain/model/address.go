package model

import "time"

// 配送先住所（住所帳）。注文確定時にスナップショットからbest-effortで保存される。
type Address struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID int64 `gorm:"not null;index" json:"member_id"`

	//宛名
	Receiver string `gorm:"type:varchar(20);not null" json:"receiver"`

	//郵便番号（5桁）
	Postcode string `gorm:"type:varchar(10);not null" json:"postcode"`

	//住所詳細
	AddrDetail string `gorm:"type:varchar(255);not null" json:"addr_detail"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
