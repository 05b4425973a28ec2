package model

import "time"

// 传输方向
const (
	TransferPut = "put"
	TransferGet = "get"
)

// Transfer 传输会话表
type Transfer struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_transfers_name;column:name" json:"name"` // 会话令牌
	UserID    uint      `gorm:"not null;column:user_id" json:"user_id"`
	Type      string    `gorm:"type:text;not null;column:type" json:"type"` // put, get
	Path      string    `gorm:"type:text;not null;column:path" json:"path"`
	Size      int64     `gorm:"not null;column:size" json:"size"`
	CreatedAt time.Time `gorm:"not null;index:idx_transfers_created_at;column:created_at" json:"created_at"`
	Done      bool      `gorm:"not null;default:false;column:done" json:"done"`
}

// TableName 指定表名
func (Transfer) TableName() string {
	return "transfers"
}
