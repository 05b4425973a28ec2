package entity

// Zone Zone 信息
type Zone struct {
	ID          uint       `json:"id"`
	OID         int        `json:"oid"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Hosts       []ZoneHost `json:"hosts"`
	Networks    []uint     `json:"networks"`
}

// ZoneHost Zone 内的主机
type ZoneHost struct {
	OID      int    `json:"oid"`
	Hostname string `json:"hostname"`
}

// ZoneIDRequest 按 ID 操作 Zone
type ZoneIDRequest struct {
	ID uint `uri:"id" json:"-"`
}

// AllocateZoneRequest 创建 Zone 请求，同时加入主机和网络
type AllocateZoneRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	Hosts       []string      `json:"hosts"`
	Networks    []NetworkSpec `json:"networks"`
}

// AddHostRequest 向 Zone 加入主机
type AddHostRequest struct {
	ID       uint   `uri:"id" json:"-"`
	Hostname string `json:"hostname" binding:"required"`
}

// RemoveHostRequest 从 Zone 移除主机
type RemoveHostRequest struct {
	ID     uint `uri:"id" json:"-"`
	HostID int  `uri:"host_id" json:"-"`
}

// AddVnetRequest 向 Zone 加入网络
type AddVnetRequest struct {
	ID      uint        `uri:"id" json:"-"`
	Network NetworkSpec `json:"network"`
}

// RemoveVnetRequest 从 Zone 移除网络
type RemoveVnetRequest struct {
	ID        uint `uri:"id" json:"-"`
	NetworkID uint `uri:"network_id" json:"-"`
}
