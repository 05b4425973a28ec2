package model

// Unassigned 租约未预分配给任何用户
const Unassigned int64 = -1

// Lease IP 租约表
type Lease struct {
	ID uint `gorm:"primaryKey;column:id" json:"id"`
	// Name 类 FQDN 的名字
	Name    string `gorm:"type:text;not null;uniqueIndex:idx_leases_name;column:name" json:"name"`
	Address string `gorm:"type:text;not null;column:address" json:"address"`
	// Used 是否绑定到活动的虚拟机
	Used bool `gorm:"not null;default:false;column:used" json:"used"`
	// AssignedTo 预分配给的用户 ID，-1 表示未分配
	AssignedTo int64 `gorm:"not null;column:assigned_to" json:"assigned_to"`
	// VnetID 所属虚拟网络
	VnetID uint `gorm:"not null;index:idx_leases_vnet_id;column:vnet_id" json:"vnet_id"`
}

// TableName 指定表名
func (Lease) TableName() string {
	return "leases"
}

// AvailableFor 租约是否可以被 userID 使用
func (l *Lease) AvailableFor(userID uint) bool {
	return !l.Used && (l.AssignedTo < 0 || l.AssignedTo == int64(userID))
}
