package ginx

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/pkg/apierror"
)

// Adapt2 适配无参数、只有返回值的 handler
func Adapt2[T any](fn func(*gin.Context) T) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result := fn(ctx)
		renderResponse(ctx, result)
	}
}

// Adapt5 适配有参数、有返回值和 error 的 handler
func Adapt5[TArgs any, TResp any](fn func(*gin.Context, *TArgs) (TResp, error)) gin.HandlerFunc {
	return Adapt6(func(ctx *gin.Context, args *TArgs) any {
		result, err := fn(ctx, args)
		if err != nil {
			return err
		}
		return result
	})
}

// Adapt6 适配有参数、只有返回值的 handler
//
// 返回值为 error 时按错误渲染
func Adapt6[TArgs any, TResp any](fn func(*gin.Context, *TArgs) TResp) gin.HandlerFunc {
	var argsType TArgs
	argsTypeValue := reflect.TypeOf(argsType)

	return func(ctx *gin.Context) {
		// 绑定参数
		argsValue := reflect.New(argsTypeValue)
		args := argsValue.Interface()

		if err := bindArgs(ctx, args); err != nil {
			renderError(ctx, http.StatusBadRequest, apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err))
			return
		}

		// 验证参数（如果实现了 IsValid 方法）
		if validator, ok := args.(interface{ IsValid() error }); ok {
			if err := validator.IsValid(); err != nil {
				renderError(ctx, http.StatusBadRequest, err)
				return
			}
		}

		result := fn(ctx, args.(*TArgs))
		if err, ok := any(result).(error); ok {
			renderError(ctx, http.StatusInternalServerError, err)
			return
		}
		renderResponse(ctx, result)
	}
}
