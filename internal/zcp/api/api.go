// Package api 提供 zcp 的 HTTP 接口
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Services API 依赖的所有服务
type Services struct {
	Users     UserServiceInterface
	Zones     ZoneServiceInterface
	Networks  NetworkServiceInterface
	Leases    LeaseServiceInterface
	VMTypes   VMTypeServiceInterface
	VMs       VMServiceInterface
	Transfers TransferServiceInterface
}

type API struct {
	engine *gin.Engine
	server *http.Server

	user     *User
	zone     *Zone
	network  *Network
	lease    *Lease
	vmType   *VMType
	vm       *VM
	transfer *Transfer
}

func New(addr string, services *Services) *API {
	engine := gin.New()
	engine.ContextWithFallback = true
	engine.Use(requestLogger(), gin.CustomRecovery(recoverPanic))

	api := &API{
		engine:   engine,
		user:     NewUser(services.Users),
		zone:     NewZone(services.Zones),
		network:  NewNetwork(services.Networks),
		lease:    NewLease(services.Leases),
		vmType:   NewVMType(services.VMTypes),
		vm:       NewVM(services.VMs),
		transfer: NewTransfer(services.Transfers),
	}

	engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router := engine.Group("/api")
	api.user.RegisterRoutes(router)
	api.zone.RegisterRoutes(router)
	api.network.RegisterRoutes(router)
	api.lease.RegisterRoutes(router)
	api.vmType.RegisterRoutes(router)
	api.vm.RegisterRoutes(router)
	api.transfer.RegisterRoutes(router)

	api.server = &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	return api
}

// Handler 返回 HTTP handler，用于测试
func (a *API) Handler() http.Handler {
	return a.engine
}

func (a *API) Run(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Str("address", a.server.Addr).Msg("API server listening")
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Name 实现 grace.Grace 接口
func (a *API) Name() string {
	return "api server"
}
