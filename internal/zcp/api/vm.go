package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
	"github.com/rs/zerolog"
)

// VMServiceInterface 定义虚拟机服务的接口
type VMServiceInterface interface {
	Pool(ctx context.Context, session string) *entity.Result
	Info(ctx context.Context, session string, req *entity.VMIDRequest) *entity.Result
	Allocate(ctx context.Context, session string, req *entity.AllocateVMRequest) *entity.Result
	Action(ctx context.Context, session string, req *entity.VMActionRequest) *entity.Result
	MarkSave(ctx context.Context, session string, req *entity.MarkSaveRequest) *entity.Result
}

type VM struct {
	vmService VMServiceInterface
}

func NewVM(vmService VMServiceInterface) *VM {
	return &VM{
		vmService: vmService,
	}
}

func (v *VM) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/vms", ginx.Adapt2(v.Pool))
	router.POST("/vms", ginx.Adapt6(v.Allocate))
	router.GET("/vms/:id", ginx.Adapt6(v.Info))
	router.POST("/vms/:id/action", ginx.Adapt6(v.Action))
	router.POST("/vms/:id/mark-save", ginx.Adapt6(v.MarkSave))
}

func (v *VM) Pool(ctx *gin.Context) *entity.Result {
	return v.vmService.Pool(ctx, session(ctx))
}

func (v *VM) Info(ctx *gin.Context, req *entity.VMIDRequest) *entity.Result {
	return v.vmService.Info(ctx, session(ctx), req)
}

func (v *VM) Allocate(ctx *gin.Context, req *entity.AllocateVMRequest) *entity.Result {
	zerolog.Ctx(ctx).Info().
		Str("type", req.Type).
		Str("zone", req.Zone).
		Int("networks", len(req.Networks)).
		Msg("Allocate VM called")
	return v.vmService.Allocate(ctx, session(ctx), req)
}

func (v *VM) Action(ctx *gin.Context, req *entity.VMActionRequest) *entity.Result {
	zerolog.Ctx(ctx).Info().
		Uint("vm_id", req.ID).
		Str("action", req.Action).
		Msg("VM action called")
	return v.vmService.Action(ctx, session(ctx), req)
}

func (v *VM) MarkSave(ctx *gin.Context, req *entity.MarkSaveRequest) *entity.Result {
	return v.vmService.MarkSave(ctx, session(ctx), req)
}
