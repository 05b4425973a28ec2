package entity

// Lease IP 租约信息
type Lease struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Used       bool   `json:"used"`
	AssignedTo int64  `json:"assigned_to"`
	VnetID     uint   `json:"vnet_id"`
}

// LeaseIDRequest 按 ID 操作租约
type LeaseIDRequest struct {
	ID uint `uri:"id" json:"-"`
}

// LeasePoolRequest 列出网络的租约
type LeasePoolRequest struct {
	NetworkID uint `uri:"id" json:"-"`
}

// AssignLeaseRequest 将租约预分配给用户
type AssignLeaseRequest struct {
	ID     uint `uri:"id" json:"-"`
	UserID uint `json:"user_id"`
}
