package entity

// VirtualNetwork 虚拟网络信息
type VirtualNetwork struct {
	ID          uint     `json:"id"`
	OID         int      `json:"oid"`
	Name        string   `json:"name"`
	ZoneName    string   `json:"zone_name"`
	UniqueName  string   `json:"unique_name"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address"`
	Netmask     string   `json:"netmask"`
	Gateway     string   `json:"gateway"`
	DNS         []string `json:"dns"`
	NTP         []string `json:"ntp"`
	Leases      []Lease  `json:"leases"`
}

// NetworkSpec 创建网络时的声明
type NetworkSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Address     string      `json:"address"`
	Netmask     string      `json:"netmask"`
	Gateway     string      `json:"gateway"`
	DNS         []string    `json:"dns"`
	NTP         []string    `json:"ntp"`
	Leases      []LeaseSpec `json:"leases"`
}

// LeaseSpec 创建租约时的声明
type LeaseSpec struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// NetworkPoolRequest 按 Zone 列出网络
type NetworkPoolRequest struct {
	Zone string `form:"zone" json:"-"`
}

// NetworkIDRequest 按 ID 操作网络
type NetworkIDRequest struct {
	ID uint `uri:"id" json:"-"`
}

// NetworkServerRequest 增删网络的 DNS/NTP 服务器
type NetworkServerRequest struct {
	ID     uint   `uri:"id" json:"-"`
	Server string `json:"server" binding:"required"`
}

// AddLeaseRequest 向网络加入租约
type AddLeaseRequest struct {
	ID    uint      `uri:"id" json:"-"`
	Lease LeaseSpec `json:"lease"`
}

// RemoveLeaseRequest 从网络移除租约
type RemoveLeaseRequest struct {
	ID      uint `uri:"id" json:"-"`
	LeaseID uint `uri:"lease_id" json:"-"`
}
