package model

import "time"

// Zone Zone 表，对应外部编排器中的一个集群
type Zone struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	OID         int       `gorm:"uniqueIndex:idx_zones_oid;not null;column:oid" json:"oid"` // 外部集群 ID
	Name        string    `gorm:"type:text;uniqueIndex:idx_zones_name;not null;column:name" json:"name"`
	Description string    `gorm:"type:text;column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Zone) TableName() string {
	return "zones"
}

// ZoneHost Zone 内的主机（与外部集群成员保持一致）
type ZoneHost struct {
	ID       uint   `gorm:"primaryKey;column:id" json:"id"`
	ZoneID   uint   `gorm:"not null;uniqueIndex:idx_zone_hosts_unique;column:zone_id" json:"zone_id"`
	HostOID  int    `gorm:"not null;uniqueIndex:idx_zone_hosts_unique;column:host_oid" json:"host_oid"`
	Hostname string `gorm:"type:text;column:hostname" json:"hostname"`
}

// TableName 指定表名
func (ZoneHost) TableName() string {
	return "zone_hosts"
}

// ZoneNetwork Zone 内的虚拟网络
type ZoneNetwork struct {
	ID        uint `gorm:"primaryKey;column:id" json:"id"`
	ZoneID    uint `gorm:"not null;index:idx_zone_networks_zone_id;column:zone_id" json:"zone_id"`
	NetworkID uint `gorm:"not null;uniqueIndex:idx_zone_networks_network_id;column:network_id" json:"network_id"`
}

// TableName 指定表名
func (ZoneNetwork) TableName() string {
	return "zone_networks"
}
