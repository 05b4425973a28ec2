package model

import "time"

// VirtualMachine 虚拟机表
type VirtualMachine struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	OID       int       `gorm:"uniqueIndex:idx_virtual_machines_oid;not null;column:oid" json:"oid"` // 外部虚拟机 ID
	UserID    uint      `gorm:"not null;index:idx_virtual_machines_user_zone;column:user_id" json:"user_id"`
	ZoneID    uint      `gorm:"not null;index:idx_virtual_machines_user_zone;column:zone_id" json:"zone_id"`
	LeaseID   uint      `gorm:"not null;column:lease_id" json:"lease_id"` // 主租约
	TypeID    uint      `gorm:"not null;column:type_id" json:"type_id"`
	ImageID   int       `gorm:"not null;column:image_id" json:"image_id"` // 外部镜像 ID
	Hostname  string    `gorm:"type:text;column:hostname" json:"hostname"`
	Info      string    `gorm:"type:text;column:info" json:"info"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 指定表名
func (VirtualMachine) TableName() string {
	return "virtual_machines"
}

// VMLease 虚拟机的次要租约
type VMLease struct {
	ID      uint `gorm:"primaryKey;column:id" json:"id"`
	VMID    uint `gorm:"not null;index:idx_vm_leases_vm_id;column:vm_id" json:"vm_id"`
	LeaseID uint `gorm:"not null;uniqueIndex:idx_vm_leases_lease_id;column:lease_id" json:"lease_id"`
}

// TableName 指定表名
func (VMLease) TableName() string {
	return "vm_leases"
}
