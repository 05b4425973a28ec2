package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
)

// LeaseServiceInterface 定义租约服务的接口
type LeaseServiceInterface interface {
	Pool(ctx context.Context, session string, req *entity.LeasePoolRequest) *entity.Result
	Available(ctx context.Context, session string, req *entity.LeasePoolRequest) *entity.Result
	Assign(ctx context.Context, session string, req *entity.AssignLeaseRequest) *entity.Result
	Release(ctx context.Context, session string, req *entity.LeaseIDRequest) *entity.Result
}

type Lease struct {
	leaseService LeaseServiceInterface
}

func NewLease(leaseService LeaseServiceInterface) *Lease {
	return &Lease{
		leaseService: leaseService,
	}
}

func (l *Lease) RegisterRoutes(router *gin.RouterGroup) {
	// 租约池挂在网络下，与 network.go 的 /networks/:id/leases 共用前缀
	router.GET("/networks/:id/leases", ginx.Adapt6(l.Pool))
	router.GET("/networks/:id/leases/available", ginx.Adapt6(l.Available))
	router.POST("/leases/:id/assign", ginx.Adapt6(l.Assign))
	router.POST("/leases/:id/release", ginx.Adapt6(l.Release))
}

func (l *Lease) Pool(ctx *gin.Context, req *entity.LeasePoolRequest) *entity.Result {
	return l.leaseService.Pool(ctx, session(ctx), req)
}

func (l *Lease) Available(ctx *gin.Context, req *entity.LeasePoolRequest) *entity.Result {
	return l.leaseService.Available(ctx, session(ctx), req)
}

func (l *Lease) Assign(ctx *gin.Context, req *entity.AssignLeaseRequest) *entity.Result {
	return l.leaseService.Assign(ctx, session(ctx), req)
}

func (l *Lease) Release(ctx *gin.Context, req *entity.LeaseIDRequest) *entity.Result {
	return l.leaseService.Release(ctx, session(ctx), req)
}
