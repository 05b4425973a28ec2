package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
	"github.com/rs/zerolog"
)

// UserServiceInterface 定义用户服务的接口
type UserServiceInterface interface {
	Pool(ctx context.Context, session string) *entity.Result
	Info(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result
	Allocate(ctx context.Context, session string, req *entity.AllocateUserRequest) *entity.Result
	Delete(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result
	Enable(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result
	Disable(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result
	SetQuota(ctx context.Context, session string, req *entity.SetQuotaRequest) *entity.Result
	RemoveZone(ctx context.Context, session string, req *entity.RemoveZoneRequest) *entity.Result
	SetKey(ctx context.Context, session string, req *entity.SetKeyRequest) *entity.Result
}

type User struct {
	userService UserServiceInterface
}

func NewUser(userService UserServiceInterface) *User {
	return &User{
		userService: userService,
	}
}

func (u *User) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users", ginx.Adapt2(u.Pool))
	router.POST("/users", ginx.Adapt6(u.Allocate))
	router.GET("/users/:id", ginx.Adapt6(u.Info))
	router.DELETE("/users/:id", ginx.Adapt6(u.Delete))
	router.POST("/users/:id/enable", ginx.Adapt6(u.Enable))
	router.POST("/users/:id/disable", ginx.Adapt6(u.Disable))
	router.PUT("/users/:id/quota", ginx.Adapt6(u.SetQuota))
	router.DELETE("/users/:id/zones/:zone_id", ginx.Adapt6(u.RemoveZone))
	router.PUT("/users/:id/key", ginx.Adapt6(u.SetKey))
}

func (u *User) Pool(ctx *gin.Context) *entity.Result {
	return u.userService.Pool(ctx, session(ctx))
}

func (u *User) Info(ctx *gin.Context, req *entity.UserIDRequest) *entity.Result {
	return u.userService.Info(ctx, session(ctx), req)
}

func (u *User) Allocate(ctx *gin.Context, req *entity.AllocateUserRequest) *entity.Result {
	zerolog.Ctx(ctx).Info().
		Str("name", req.Name).
		Msg("Allocate user called")
	return u.userService.Allocate(ctx, session(ctx), req)
}

func (u *User) Delete(ctx *gin.Context, req *entity.UserIDRequest) *entity.Result {
	zerolog.Ctx(ctx).Info().
		Uint("user_id", req.ID).
		Msg("Delete user called")
	return u.userService.Delete(ctx, session(ctx), req)
}

func (u *User) Enable(ctx *gin.Context, req *entity.UserIDRequest) *entity.Result {
	return u.userService.Enable(ctx, session(ctx), req)
}

func (u *User) Disable(ctx *gin.Context, req *entity.UserIDRequest) *entity.Result {
	return u.userService.Disable(ctx, session(ctx), req)
}

func (u *User) SetQuota(ctx *gin.Context, req *entity.SetQuotaRequest) *entity.Result {
	return u.userService.SetQuota(ctx, session(ctx), req)
}

func (u *User) RemoveZone(ctx *gin.Context, req *entity.RemoveZoneRequest) *entity.Result {
	return u.userService.RemoveZone(ctx, session(ctx), req)
}

func (u *User) SetKey(ctx *gin.Context, req *entity.SetKeyRequest) *entity.Result {
	return u.userService.SetKey(ctx, session(ctx), req)
}
