package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/pkg/apierror"
)

// StatusCoder 由自带 HTTP 状态码的响应实现
type StatusCoder interface {
	StatusCode() int
}

// renderResponse 渲染 JSON 响应
// 响应实现 StatusCoder 时使用它给出的状态码
func renderResponse(ctx *gin.Context, response any) {
	if response == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	statusCode := http.StatusOK
	if coder, ok := response.(StatusCoder); ok {
		if code := coder.StatusCode(); code > 0 {
			statusCode = code
		}
	}

	switch v := response.(type) {
	case string:
		ctx.String(statusCode, v)
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool:
		ctx.JSON(statusCode, gin.H{"value": v})
	default:
		ctx.JSON(statusCode, response)
	}
}

// renderError 渲染错误响应 {"ok": false, "message": ...}
// err 链上有 *apierror.Error 时使用其中的 HTTP 状态码
func renderError(ctx *gin.Context, statusCode int, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) && apiErr.HTTPStatus > 0 {
		statusCode = apiErr.HTTPStatus
	}
	ctx.JSON(statusCode, gin.H{
		"ok":      false,
		"message": apierror.Message(err),
	})
}
