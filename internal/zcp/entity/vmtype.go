package entity

import "github.com/jimyag/zcp/pkg/apierror"

// VMType 虚拟机规格
type VMType struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	CPU         int    `json:"cpu"`
	Memory      int    `json:"memory"` // MB
	Weight      int    `json:"weight"`
	Description string `json:"description,omitempty"`
}

// VMTypeIDRequest 按 ID 操作规格
type VMTypeIDRequest struct {
	ID uint `uri:"id" json:"-"`
}

// AllocateVMTypeRequest 创建规格请求
type AllocateVMTypeRequest struct {
	Name        string `json:"name" binding:"required"`
	CPU         int    `json:"cpu"`
	Memory      int    `json:"memory"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
}

func (r *AllocateVMTypeRequest) IsValid() error {
	if r.CPU <= 0 || r.Memory <= 0 {
		return apierror.New(apierror.ErrInvalidParameter, "cpu and memory must be positive")
	}
	return nil
}
