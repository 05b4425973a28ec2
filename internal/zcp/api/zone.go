package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
	"github.com/rs/zerolog"
)

// ZoneServiceInterface 定义 Zone 服务的接口
type ZoneServiceInterface interface {
	Pool(ctx context.Context, session string) *entity.Result
	Info(ctx context.Context, session string, req *entity.ZoneIDRequest) *entity.Result
	Allocate(ctx context.Context, session string, req *entity.AllocateZoneRequest) *entity.Result
	Delete(ctx context.Context, session string, req *entity.ZoneIDRequest) *entity.Result
	AddHost(ctx context.Context, session string, req *entity.AddHostRequest) *entity.Result
	RemoveHost(ctx context.Context, session string, req *entity.RemoveHostRequest) *entity.Result
	AddVnet(ctx context.Context, session string, req *entity.AddVnetRequest) *entity.Result
	RemoveVnet(ctx context.Context, session string, req *entity.RemoveVnetRequest) *entity.Result
}

type Zone struct {
	zoneService ZoneServiceInterface
}

func NewZone(zoneService ZoneServiceInterface) *Zone {
	return &Zone{
		zoneService: zoneService,
	}
}

func (z *Zone) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/zones", ginx.Adapt2(z.Pool))
	router.POST("/zones", ginx.Adapt6(z.Allocate))
	router.GET("/zones/:id", ginx.Adapt6(z.Info))
	router.DELETE("/zones/:id", ginx.Adapt6(z.Delete))
	router.POST("/zones/:id/hosts", ginx.Adapt6(z.AddHost))
	router.DELETE("/zones/:id/hosts/:host_id", ginx.Adapt6(z.RemoveHost))
	router.POST("/zones/:id/vnets", ginx.Adapt6(z.AddVnet))
	router.DELETE("/zones/:id/vnets/:network_id", ginx.Adapt6(z.RemoveVnet))
}

func (z *Zone) Pool(ctx *gin.Context) *entity.Result {
	return z.zoneService.Pool(ctx, session(ctx))
}

func (z *Zone) Info(ctx *gin.Context, req *entity.ZoneIDRequest) *entity.Result {
	return z.zoneService.Info(ctx, session(ctx), req)
}

func (z *Zone) Allocate(ctx *gin.Context, req *entity.AllocateZoneRequest) *entity.Result {
	zerolog.Ctx(ctx).Info().
		Str("name", req.Name).
		Strs("hosts", req.Hosts).
		Int("networks", len(req.Networks)).
		Msg("Allocate zone called")
	return z.zoneService.Allocate(ctx, session(ctx), req)
}

func (z *Zone) Delete(ctx *gin.Context, req *entity.ZoneIDRequest) *entity.Result {
	zerolog.Ctx(ctx).Info().
		Uint("zone_id", req.ID).
		Msg("Delete zone called")
	return z.zoneService.Delete(ctx, session(ctx), req)
}

func (z *Zone) AddHost(ctx *gin.Context, req *entity.AddHostRequest) *entity.Result {
	return z.zoneService.AddHost(ctx, session(ctx), req)
}

func (z *Zone) RemoveHost(ctx *gin.Context, req *entity.RemoveHostRequest) *entity.Result {
	return z.zoneService.RemoveHost(ctx, session(ctx), req)
}

func (z *Zone) AddVnet(ctx *gin.Context, req *entity.AddVnetRequest) *entity.Result {
	return z.zoneService.AddVnet(ctx, session(ctx), req)
}

func (z *Zone) RemoveVnet(ctx *gin.Context, req *entity.RemoveVnetRequest) *entity.Result {
	return z.zoneService.RemoveVnet(ctx, session(ctx), req)
}
