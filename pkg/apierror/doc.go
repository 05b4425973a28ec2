// Package apierror 提供控制面统一使用的错误类型
//
// 每个错误带一个稳定的 Code 和面向调用方的 Message。Message 会原样作为
// 失败结果 (ok=false) 的载荷返回给调用方，RawError 只用于服务端日志。
//
// 错误分类：
//
//   - ErrNotFound: 引用的实体不存在
//   - ErrConflict: 创建时违反唯一性约束
//   - ErrPermissionDenied: 无权使用 Zone 或需要管理员权限
//   - ErrQuotaExceeded: 超出配额
//   - ErrExternalCall: 外部编排器返回失败
//   - ErrConsistency: 多步操作中途本地存储更新失败
//   - ErrProtocol: 传输协议错误（大小不匹配、会话已完成）
//   - ErrAuthFailed: 会话认证失败
//   - ErrInvalidParameter: 请求参数非法
//   - ErrInternalError: 其他内部错误
//
// 使用示例：
//
//	return apierror.WrapError(apierror.ErrNotFound, fmt.Sprintf("Zone[%s] not found", name), err)
//
//	if errors.Is(err, apierror.ErrPermissionDenied) {
//	    ...
//	}
package apierror
