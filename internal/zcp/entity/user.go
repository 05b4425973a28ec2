package entity

import "github.com/jimyag/zcp/pkg/apierror"

// User 用户信息
type User struct {
	ID           uint       `json:"id"`
	OID          int        `json:"oid"`
	Name         string     `json:"name"`
	Enabled      bool       `json:"enabled"`
	SSHPublicKey string     `json:"ssh_public_key,omitempty"`
	Zones        []UserZone `json:"zones"`
}

// UserZone 用户在 Zone 的授权
type UserZone struct {
	ZoneID uint `json:"zone_id"`
	Quota  int  `json:"quota"`
}

// UserIDRequest 按 ID 操作用户
type UserIDRequest struct {
	ID uint `uri:"id" json:"-"`
}

// AllocateUserRequest 创建用户请求
type AllocateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SetQuotaRequest 设置用户在 Zone 的配额
type SetQuotaRequest struct {
	ID     uint `uri:"id" json:"-"`
	ZoneID uint `json:"zone_id"`
	Quota  int  `json:"quota"`
}

func (r *SetQuotaRequest) IsValid() error {
	if r.ZoneID == 0 {
		return apierror.New(apierror.ErrInvalidParameter, "zone_id is required")
	}
	if r.Quota < 0 {
		return apierror.New(apierror.ErrInvalidParameter, "quota must not be negative")
	}
	return nil
}

// RemoveZoneRequest 取消用户对 Zone 的授权
type RemoveZoneRequest struct {
	ID     uint `uri:"id" json:"-"`
	ZoneID uint `uri:"zone_id" json:"-"`
}

// SetKeyRequest 设置用户 SSH 公钥
type SetKeyRequest struct {
	ID        uint   `uri:"id" json:"-"`
	PublicKey string `json:"public_key" binding:"required"`
}
