package model

import "time"

// User 用户表
type User struct {
	ID uint `gorm:"primaryKey;column:id" json:"id"`
	// OID 外部编排器中的用户 ID
	OID     int    `gorm:"uniqueIndex:idx_users_oid;not null;column:oid" json:"oid"`
	Name    string `gorm:"type:text;uniqueIndex:idx_users_name;not null;column:name" json:"name"`
	Enabled bool   `gorm:"not null;column:enabled" json:"enabled"`
	// SSHPublicKey 注入虚拟机上下文的公钥
	SSHPublicKey string    `gorm:"type:text;column:ssh_public_key" json:"ssh_public_key"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// UserZone 用户可使用的 Zone 及其在该 Zone 的虚拟机配额
type UserZone struct {
	ID     uint `gorm:"primaryKey;column:id" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_zones_unique;column:user_id" json:"user_id"`
	ZoneID uint `gorm:"not null;uniqueIndex:idx_user_zones_unique;index:idx_user_zones_zone_id;column:zone_id" json:"zone_id"`
	Quota  int  `gorm:"not null;default:0;column:quota" json:"quota"`
}

// TableName 指定表名
func (UserZone) TableName() string {
	return "user_zones"
}
