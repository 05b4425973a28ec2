// Package entity 定义业务实体
package entity

import (
	"net/http"

	"github.com/jimyag/zcp/pkg/apierror"
)

// Result 所有操作统一的返回结构
// OK 为 false 时 Message 是面向调用方的错误信息
type Result struct {
	OK      bool   `json:"ok"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`

	status int
}

// Success 成功结果
func Success(payload any) *Result {
	return &Result{OK: true, Payload: payload, status: http.StatusOK}
}

// Failure 失败结果，状态码取自 apierror
func Failure(err error) *Result {
	return &Result{OK: false, Message: apierror.Message(err), status: apierror.Status(err)}
}

// StatusCode 返回 HTTP 状态码
func (r *Result) StatusCode() int {
	if r.status == 0 {
		if r.OK {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	}
	return r.status
}

// IDResponse 创建类操作返回的 ID
type IDResponse struct {
	ID uint `json:"id"`
}
