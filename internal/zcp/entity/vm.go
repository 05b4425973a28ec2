package entity

import (
	"strings"

	"github.com/jimyag/zcp/pkg/apierror"
)

// VirtualMachine 虚拟机信息
type VirtualMachine struct {
	ID       uint   `json:"id"`
	OID      int    `json:"oid"`
	UserID   uint   `json:"user_id"`
	ZoneID   uint   `json:"zone_id"`
	TypeID   uint   `json:"type_id"`
	ImageID  int    `json:"image_id"`
	Hostname string `json:"hostname"`
	Info     string `json:"info,omitempty"`
	LeaseIDs []uint `json:"lease_ids"`

	// 以下字段来自外部编排器
	State    int  `json:"state"`
	LCMState int  `json:"lcm_state"`
	Active   bool `json:"active"`
}

// VMIDRequest 按 ID 操作虚拟机
type VMIDRequest struct {
	ID uint `uri:"id" json:"-"`
}

// VMNetworkRequest 虚拟机要接入的网络，Lease 为空时自动选择
type VMNetworkRequest struct {
	Network string `json:"network"` // Zone 内的网络名
	Lease   string `json:"lease"`
}

// AllocateVMRequest 创建虚拟机请求
type AllocateVMRequest struct {
	Type     string             `json:"type"` // 规格 ID 或名称
	Zone     string             `json:"zone"` // Zone ID 或名称
	ImageID  *int               `json:"image_id"`
	Networks []VMNetworkRequest `json:"networks"`
	Info     string             `json:"info"`
}

func (r *AllocateVMRequest) IsValid() error {
	switch {
	case r.Type == "":
		return apierror.New(apierror.ErrInvalidParameter, "type is required")
	case r.Zone == "":
		return apierror.New(apierror.ErrInvalidParameter, "zone is required")
	case len(r.Networks) == 0:
		return apierror.New(apierror.ErrInvalidParameter, "at least one network is required")
	}
	for _, n := range r.Networks {
		if n.Network == "" {
			return apierror.New(apierror.ErrInvalidParameter, "network name is required")
		}
	}
	return nil
}

// VMActionRequest 虚拟机动作请求
type VMActionRequest struct {
	ID     uint   `uri:"id" json:"-"`
	Action string `json:"action" binding:"required"`
}

// Normalize 动作名统一为大写
func (r *VMActionRequest) Normalize() string {
	return strings.ToUpper(strings.TrimSpace(r.Action))
}

// MarkSaveRequest 将虚拟机磁盘标记为保存为镜像
type MarkSaveRequest struct {
	ID          uint   `uri:"id" json:"-"`
	DiskID      int    `json:"disk_id"`
	ImageName   string `json:"image_name" binding:"required"`
	Description string `json:"description"`
}

// MarkSaveResponse 保存的镜像 ID
type MarkSaveResponse struct {
	ImageID int `json:"image_id"`
}
