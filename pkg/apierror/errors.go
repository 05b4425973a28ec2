package apierror

import "net/http"

// 控制面错误分类
var (
	// ErrNotFound 引用的实体不存在
	ErrNotFound = &Error{
		Code:       "ResourceNotFound",
		Message:    "The referenced resource does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrConflict 违反唯一性约束
	ErrConflict = &Error{
		Code:       "ResourceConflict",
		Message:    "A resource with the same unique name already exists.",
		HTTPStatus: http.StatusConflict,
	}

	// ErrPermissionDenied 无权执行该操作
	ErrPermissionDenied = &Error{
		Code:       "PermissionDenied",
		Message:    "You do not have permission to perform this operation.",
		HTTPStatus: http.StatusForbidden,
	}

	// ErrQuotaExceeded 超出配额
	ErrQuotaExceeded = &Error{
		Code:       "QuotaExceeded",
		Message:    "The quota for this resource has been reached.",
		HTTPStatus: http.StatusForbidden,
	}

	// ErrExternalCall 外部编排器调用失败
	ErrExternalCall = &Error{
		Code:       "ExternalCallFailure",
		Message:    "The external orchestrator rejected the request.",
		HTTPStatus: http.StatusBadGateway,
	}

	// ErrConsistency 多步操作中途本地存储更新失败
	ErrConsistency = &Error{
		Code:       "ConsistencyFailure",
		Message:    "The local store could not be updated consistently.",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrProtocol 传输协议错误
	ErrProtocol = &Error{
		Code:       "ProtocolFailure",
		Message:    "The transfer session is not in a valid state for this request.",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrAuthFailed 认证失败
	ErrAuthFailed = &Error{
		Code:       "AuthFailure",
		Message:    "The session could not be authenticated.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrInvalidParameter 请求参数非法
	ErrInvalidParameter = &Error{
		Code:       "InvalidParameter",
		Message:    "A parameter specified in the request is not valid.",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrInternalError 发生了内部错误
	ErrInternalError = &Error{
		Code:       "InternalError",
		Message:    "An internal error has occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
