package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// SessionHeader 携带 username:secret 会话令牌的请求头
	SessionHeader = "X-ZCP-Session"
	// RequestIDHeader 请求 ID，未提供时生成
	RequestIDHeader = "X-Request-ID"
)

// requestLogger 为每个请求生成 request id，并把带 request id 的 logger 放入请求的 context
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		logger := zerolog.Ctx(c.Request.Context()).With().
			Str("request_id", requestID).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func recoverPanic(c *gin.Context, recovered any) {
	zerolog.Ctx(c.Request.Context()).Error().
		Interface("panic", recovered).
		Msg("Handler panicked")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"ok":      false,
		"message": "internal error",
	})
}

// session 取出请求的会话令牌
func session(c *gin.Context) string {
	return c.GetHeader(SessionHeader)
}
