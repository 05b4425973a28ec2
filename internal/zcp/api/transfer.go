package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/pkg/ginx"
)

// TransferServiceInterface 定义文件传输服务的接口
type TransferServiceInterface interface {
	Init(ctx context.Context, session string, req *entity.InitTransferRequest) *entity.Result
	Put(ctx context.Context, session string, req *entity.PutChunkRequest) *entity.Result
	Get(ctx context.Context, session string, req *entity.GetChunkRequest) *entity.Result
	Finalize(ctx context.Context, session string, req *entity.TransferTokenRequest) *entity.Result
	Cancel(ctx context.Context, session string, req *entity.TransferTokenRequest) *entity.Result
	Delete(ctx context.Context, session string, req *entity.DeleteFileRequest) *entity.Result
}

type Transfer struct {
	transferService TransferServiceInterface
}

func NewTransfer(transferService TransferServiceInterface) *Transfer {
	return &Transfer{
		transferService: transferService,
	}
}

func (t *Transfer) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/transfers", ginx.Adapt6(t.Init))
	router.PUT("/transfers/:token", ginx.Adapt6(t.Put))
	router.GET("/transfers/:token", ginx.Adapt6(t.Get))
	router.POST("/transfers/:token/finalize", ginx.Adapt6(t.Finalize))
	router.DELETE("/transfers/:token", ginx.Adapt6(t.Cancel))
	router.DELETE("/files", ginx.Adapt6(t.Delete))
}

func (t *Transfer) Init(ctx *gin.Context, req *entity.InitTransferRequest) *entity.Result {
	return t.transferService.Init(ctx, session(ctx), req)
}

func (t *Transfer) Put(ctx *gin.Context, req *entity.PutChunkRequest) *entity.Result {
	return t.transferService.Put(ctx, session(ctx), req)
}

func (t *Transfer) Get(ctx *gin.Context, req *entity.GetChunkRequest) *entity.Result {
	return t.transferService.Get(ctx, session(ctx), req)
}

func (t *Transfer) Finalize(ctx *gin.Context, req *entity.TransferTokenRequest) *entity.Result {
	return t.transferService.Finalize(ctx, session(ctx), req)
}

func (t *Transfer) Cancel(ctx *gin.Context, req *entity.TransferTokenRequest) *entity.Result {
	return t.transferService.Cancel(ctx, session(ctx), req)
}

func (t *Transfer) Delete(ctx *gin.Context, req *entity.DeleteFileRequest) *entity.Result {
	return t.transferService.Delete(ctx, session(ctx), req)
}
