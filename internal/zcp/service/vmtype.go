package service

import (
	"context"
	"fmt"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
)

// VMTypeService 虚拟机规格服务
type VMTypeService struct {
	gate    *Gate
	vmTypes repository.VMTypeRepository
}

// NewVMTypeService 创建虚拟机规格服务
func NewVMTypeService(repo *repository.Repository, client orchestrator.Client) *VMTypeService {
	return &VMTypeService{
		gate:    NewGate("vmtype", repository.NewUserRepository(repo.DB()), client),
		vmTypes: repository.NewVMTypeRepository(repo.DB()),
	}
}

// Pool 按权重列出所有规格
func (s *VMTypeService) Pool(ctx context.Context, session string) *entity.Result {
	return s.gate.Execute(ctx, "pool", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		types, err := s.vmTypes.List(ctx)
		if err != nil {
			return nil, consistencyError("list vm types", err)
		}
		result := make([]*entity.VMType, 0, len(types))
		for _, t := range types {
			e, err := vmTypeModelToEntity(t)
			if err != nil {
				return nil, apierror.WrapError(apierror.ErrInternalError, "convert vm type", err)
			}
			result = append(result, e)
		}
		return result, nil
	})
}

// Info 查询规格
func (s *VMTypeService) Info(ctx context.Context, session string, req *entity.VMTypeIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "info", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		vmType, err := s.vmTypes.GetByID(ctx, req.ID)
		if vmType, err = lookup(vmType, err, "VMType[%d]", req.ID); err != nil {
			return nil, err
		}
		return vmTypeModelToEntity(vmType)
	})
}

// Allocate 创建规格，名称必须唯一
func (s *VMTypeService) Allocate(ctx context.Context, session string, req *entity.AllocateVMTypeRequest) *entity.Result {
	return s.gate.Execute(ctx, "allocate", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		if _, err := s.vmTypes.GetByName(ctx, req.Name); err == nil {
			return nil, apierror.Newf(apierror.ErrConflict, "VMType[%s] already exists", req.Name)
		} else if !repository.IsNotFound(err) {
			return nil, consistencyError("load vm type", err)
		}
		vmType := &model.VMType{
			Name:        req.Name,
			CPU:         req.CPU,
			Memory:      req.Memory,
			Weight:      req.Weight,
			Description: req.Description,
		}
		if err := s.vmTypes.Create(ctx, vmType); err != nil {
			return nil, createError(fmt.Sprintf("VMType[%s]", req.Name), err)
		}
		return &entity.IDResponse{ID: vmType.ID}, nil
	})
}

// Delete 删除规格
func (s *VMTypeService) Delete(ctx context.Context, session string, req *entity.VMTypeIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "delete", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		vmType, err := s.vmTypes.GetByID(ctx, req.ID)
		if _, err = lookup(vmType, err, "VMType[%d]", req.ID); err != nil {
			return nil, err
		}
		if err := s.vmTypes.Delete(ctx, req.ID); err != nil {
			return nil, consistencyError("delete vm type", err)
		}
		return nil, nil
	})
}
