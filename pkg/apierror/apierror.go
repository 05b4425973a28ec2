package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 单个错误信息
type Error struct {
	Code       string `xml:"Code"    json:"code"`
	Message    string `xml:"Message" json:"message"`
	HTTPStatus int    `xml:"-"       json:"-"` // HTTP 状态码，不会序列化到响应中
	RawError   error  `xml:"-"       json:"-"` // 内部错误，用于服务端调试，不会序列化到响应中
}

// Error 实现 error 接口
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.RawError != nil {
		str += fmt.Sprintf(" (RawError: %v)", e.RawError)
	}
	return str
}

// Is 实现 errors.Is 接口，Code 相同即认为是同一类错误
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if e == nil || t == nil {
		return false
	}

	return e.Code == t.Code
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.RawError
}

// 编译时检查 Error 是否实现了所有必需的接口
var _ interface {
	Error() string
	Is(target error) bool
	Unwrap() error
} = (*Error)(nil)

// NewError 创建新的错误，默认 HTTP 状态码为 500
func NewError(code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewErrorWithStatus 创建新的错误，指定 HTTP 状态码
func NewErrorWithStatus(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NewErrorWithRaw 创建新的错误，包含原始错误信息
func NewErrorWithRaw(code, message string, rawError error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		RawError:   rawError,
	}
}

// WrapError 包装预定义的错误
// 保留预定义错误的 Code 和 HTTPStatus，使用自定义消息和原始错误
func WrapError(baseErr *Error, message string, rawError error) *Error {
	return &Error{
		Code:       baseErr.Code,
		Message:    message,
		HTTPStatus: baseErr.HTTPStatus,
		RawError:   rawError,
	}
}

// New 基于预定义错误创建一个只带消息的错误
func New(baseErr *Error, message string) *Error {
	return WrapError(baseErr, message, nil)
}

// Newf 同 New，消息使用格式化字符串
func Newf(baseErr *Error, format string, args ...any) *Error {
	return WrapError(baseErr, fmt.Sprintf(format, args...), nil)
}

// Message 提取面向调用方的消息
// 链上存在 *Error 时返回它的 Message，否则返回 err.Error()
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Status 返回 err 对应的 HTTP 状态码
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.HTTPStatus > 0 {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
