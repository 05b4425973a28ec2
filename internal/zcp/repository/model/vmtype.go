package model

// VMType 虚拟机规格表
type VMType struct {
	ID          uint   `gorm:"primaryKey;column:id" json:"id"`
	Name        string `gorm:"type:text;not null;uniqueIndex:idx_vm_types_name;column:name" json:"name"`
	CPU         int    `gorm:"not null;column:cpu" json:"cpu"`
	Memory      int    `gorm:"not null;column:memory" json:"memory"` // MB
	Description string `gorm:"type:text;column:description" json:"description"`
	Weight      int    `gorm:"not null;default:0;column:weight" json:"weight"`
}

// TableName 指定表名
func (VMType) TableName() string {
	return "vm_types"
}
