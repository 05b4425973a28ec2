package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
)

// VMTypeServiceInterface 定义虚拟机规格服务的接口
type VMTypeServiceInterface interface {
	Pool(ctx context.Context, session string) *entity.Result
	Info(ctx context.Context, session string, req *entity.VMTypeIDRequest) *entity.Result
	Allocate(ctx context.Context, session string, req *entity.AllocateVMTypeRequest) *entity.Result
	Delete(ctx context.Context, session string, req *entity.VMTypeIDRequest) *entity.Result
}

type VMType struct {
	vmTypeService VMTypeServiceInterface
}

func NewVMType(vmTypeService VMTypeServiceInterface) *VMType {
	return &VMType{
		vmTypeService: vmTypeService,
	}
}

func (v *VMType) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/vmtypes", ginx.Adapt2(v.Pool))
	router.POST("/vmtypes", ginx.Adapt6(v.Allocate))
	router.GET("/vmtypes/:id", ginx.Adapt6(v.Info))
	router.DELETE("/vmtypes/:id", ginx.Adapt6(v.Delete))
}

func (v *VMType) Pool(ctx *gin.Context) *entity.Result {
	return v.vmTypeService.Pool(ctx, session(ctx))
}

func (v *VMType) Info(ctx *gin.Context, req *entity.VMTypeIDRequest) *entity.Result {
	return v.vmTypeService.Info(ctx, session(ctx), req)
}

func (v *VMType) Allocate(ctx *gin.Context, req *entity.AllocateVMTypeRequest) *entity.Result {
	return v.vmTypeService.Allocate(ctx, session(ctx), req)
}

func (v *VMType) Delete(ctx *gin.Context, req *entity.VMTypeIDRequest) *entity.Result {
	return v.vmTypeService.Delete(ctx, session(ctx), req)
}
