package model

import "time"

// VirtualNetwork 虚拟网络表
type VirtualNetwork struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	OID         int       `gorm:"uniqueIndex:idx_virtual_networks_oid;not null;column:oid" json:"oid"` // 外部网络 ID
	Name        string    `gorm:"type:text;not null;column:name" json:"name"`
	Description string    `gorm:"type:text;column:description" json:"description"`
	ZoneName    string    `gorm:"type:text;not null;index:idx_virtual_networks_zone_name;column:zone_name" json:"zone_name"`
	UniqueName  string    `gorm:"type:text;not null;uniqueIndex:idx_virtual_networks_unique_name;column:unique_name" json:"unique_name"` // zone::name
	Address     string    `gorm:"type:text;column:address" json:"address"`
	Netmask     string    `gorm:"type:text;column:netmask" json:"netmask"`
	Gateway     string    `gorm:"type:text;column:gateway" json:"gateway"`
	DNS         []string  `gorm:"type:text;serializer:json;column:dns" json:"dns"`
	NTP         []string  `gorm:"type:text;serializer:json;column:ntp" json:"ntp"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (VirtualNetwork) TableName() string {
	return "virtual_networks"
}

// UniqueNetworkName 生成全局唯一的网络名 zone::name
func UniqueNetworkName(zoneName, name string) string {
	return zoneName + "::" + name
}
