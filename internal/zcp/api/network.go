package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
)

// NetworkServiceInterface 定义网络服务的接口
type NetworkServiceInterface interface {
	Pool(ctx context.Context, session string, req *entity.NetworkPoolRequest) *entity.Result
	Info(ctx context.Context, session string, req *entity.NetworkIDRequest) *entity.Result
	AddDNS(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result
	RemoveDNS(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result
	AddNTP(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result
	RemoveNTP(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result
	AddLease(ctx context.Context, session string, req *entity.AddLeaseRequest) *entity.Result
	RemoveLease(ctx context.Context, session string, req *entity.RemoveLeaseRequest) *entity.Result
}

type Network struct {
	networkService NetworkServiceInterface
}

func NewNetwork(networkService NetworkServiceInterface) *Network {
	return &Network{
		networkService: networkService,
	}
}

func (n *Network) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/networks", ginx.Adapt6(n.Pool))
	router.GET("/networks/:id", ginx.Adapt6(n.Info))
	router.POST("/networks/:id/dns", ginx.Adapt6(n.AddDNS))
	router.DELETE("/networks/:id/dns", ginx.Adapt6(n.RemoveDNS))
	router.POST("/networks/:id/ntp", ginx.Adapt6(n.AddNTP))
	router.DELETE("/networks/:id/ntp", ginx.Adapt6(n.RemoveNTP))
	router.POST("/networks/:id/leases", ginx.Adapt6(n.AddLease))
	router.DELETE("/networks/:id/leases/:lease_id", ginx.Adapt6(n.RemoveLease))
}

func (n *Network) Pool(ctx *gin.Context, req *entity.NetworkPoolRequest) *entity.Result {
	return n.networkService.Pool(ctx, session(ctx), req)
}

func (n *Network) Info(ctx *gin.Context, req *entity.NetworkIDRequest) *entity.Result {
	return n.networkService.Info(ctx, session(ctx), req)
}

func (n *Network) AddDNS(ctx *gin.Context, req *entity.NetworkServerRequest) *entity.Result {
	return n.networkService.AddDNS(ctx, session(ctx), req)
}

func (n *Network) RemoveDNS(ctx *gin.Context, req *entity.NetworkServerRequest) *entity.Result {
	return n.networkService.RemoveDNS(ctx, session(ctx), req)
}

func (n *Network) AddNTP(ctx *gin.Context, req *entity.NetworkServerRequest) *entity.Result {
	return n.networkService.AddNTP(ctx, session(ctx), req)
}

func (n *Network) RemoveNTP(ctx *gin.Context, req *entity.NetworkServerRequest) *entity.Result {
	return n.networkService.RemoveNTP(ctx, session(ctx), req)
}

func (n *Network) AddLease(ctx *gin.Context, req *entity.AddLeaseRequest) *entity.Result {
	return n.networkService.AddLease(ctx, session(ctx), req)
}

func (n *Network) RemoveLease(ctx *gin.Context, req *entity.RemoveLeaseRequest) *entity.Result {
	return n.networkService.RemoveLease(ctx, session(ctx), req)
}
