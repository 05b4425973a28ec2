package service

import (
	"fmt"

	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
)

// externalError 外部编排器调用失败
func externalError(what string, err error) error {
	return apierror.WrapError(apierror.ErrExternalCall,
		fmt.Sprintf("%s: %s", what, orchestrator.RemoteMessage(err)), err)
}

// consistencyError 本地存储更新失败
func consistencyError(what string, err error) error {
	return apierror.WrapError(apierror.ErrConsistency, fmt.Sprintf("%s: %v", what, err), err)
}

// lookup 将仓库查询的错误转换为 not-found 或 consistency 错误
func lookup[T any](v T, err error, format string, args ...any) (T, error) {
	if err == nil {
		return v, nil
	}
	what := fmt.Sprintf(format, args...)
	if repository.IsNotFound(err) {
		return v, apierror.New(apierror.ErrNotFound, what+" not found")
	}
	return v, consistencyError("load "+what, err)
}

// createError 创建记录失败，唯一约束冲突时返回 conflict
func createError(what string, err error) error {
	if repository.IsDuplicate(err) {
		return apierror.WrapError(apierror.ErrConflict, what+" already exists", err)
	}
	return consistencyError("create "+what, err)
}
