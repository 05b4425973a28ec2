package service

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
)

// LeaseAllocator 查找、预分配和释放网络中的 IP 租约
//
// 预分配（assigned_to）与使用中（used）相互独立。
type LeaseAllocator struct {
	leases repository.LeaseRepository
}

// NewLeaseAllocator 创建租约分配器
func NewLeaseAllocator(leases repository.LeaseRepository) *LeaseAllocator {
	return &LeaseAllocator{leases: leases}
}

// FindAvailable 返回网络中 userID 可用的租约：未使用，且未预分配或预分配给 userID
// 结果按租约 ID 升序
func (a *LeaseAllocator) FindAvailable(ctx context.Context, networkID, userID uint) ([]*model.Lease, error) {
	leases, err := a.leases.FindAvailable(ctx, networkID, userID)
	if err != nil {
		return nil, consistencyError("find available leases", err)
	}
	return leases, nil
}

// Pick 选出 ID 最小的可用租约，跳过 exclude 中的租约
func (a *LeaseAllocator) Pick(ctx context.Context, network *model.VirtualNetwork, userID uint, exclude map[uint]bool) (*model.Lease, error) {
	leases, err := a.FindAvailable(ctx, network.ID, userID)
	if err != nil {
		return nil, err
	}
	for _, l := range leases {
		if !exclude[l.ID] {
			return l, nil
		}
	}
	return nil, apierror.Newf(apierror.ErrNotFound, "no available lease in Network[%s]", network.UniqueName)
}

// Assign 将租约预分配给 userID，已预分配给其他用户时失败
//
// 只更新 assigned_to 一列，不会覆盖并发写入的 used。
func (a *LeaseAllocator) Assign(ctx context.Context, leaseID, userID uint) (*model.Lease, error) {
	ok, err := a.leases.Assign(ctx, leaseID, userID)
	if err != nil {
		return nil, consistencyError("assign lease", err)
	}
	lease, err := a.leases.GetByID(ctx, leaseID)
	if lease, err = lookup(lease, err, "Lease[%d]", leaseID); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Newf(apierror.ErrConflict, "Lease[%s] is already assigned to User[%d]", lease.Name, lease.AssignedTo)
	}
	return lease, nil
}

// Release 取消租约的预分配，未预分配时失败
func (a *LeaseAllocator) Release(ctx context.Context, leaseID uint) (*model.Lease, error) {
	ok, err := a.leases.Unassign(ctx, leaseID)
	if err != nil {
		return nil, consistencyError("release lease", err)
	}
	lease, err := a.leases.GetByID(ctx, leaseID)
	if lease, err = lookup(lease, err, "Lease[%d]", leaseID); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Newf(apierror.ErrConflict, "Lease[%s] is not assigned", lease.Name)
	}
	return lease, nil
}

// LeaseService 租约服务
type LeaseService struct {
	gate      *Gate
	allocator *LeaseAllocator
	leases    repository.LeaseRepository
	networks  repository.NetworkRepository
	users     repository.UserRepository
}

// NewLeaseService 创建租约服务
func NewLeaseService(repo *repository.Repository, client orchestrator.Client, allocator *LeaseAllocator) *LeaseService {
	users := repository.NewUserRepository(repo.DB())
	return &LeaseService{
		gate:      NewGate("lease", users, client),
		allocator: allocator,
		leases:    repository.NewLeaseRepository(repo.DB()),
		networks:  repository.NewNetworkRepository(repo.DB()),
		users:     users,
	}
}

// Pool 列出网络的全部租约
func (s *LeaseService) Pool(ctx context.Context, session string, req *entity.LeasePoolRequest) *entity.Result {
	return s.gate.Execute(ctx, "pool", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		if _, err := s.network(ctx, req.NetworkID); err != nil {
			return nil, err
		}
		leases, err := s.leases.ListByNetwork(ctx, req.NetworkID)
		if err != nil {
			return nil, consistencyError("list leases", err)
		}
		return toLeaseEntities(leases)
	})
}

// Available 列出网络中调用方可用的租约
func (s *LeaseService) Available(ctx context.Context, session string, req *entity.LeasePoolRequest) *entity.Result {
	return s.gate.Execute(ctx, "available", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		if _, err := s.network(ctx, req.NetworkID); err != nil {
			return nil, err
		}
		leases, err := s.allocator.FindAvailable(ctx, req.NetworkID, caller.User.ID)
		if err != nil {
			return nil, err
		}
		return toLeaseEntities(leases)
	})
}

// Assign 将租约预分配给用户
func (s *LeaseService) Assign(ctx context.Context, session string, req *entity.AssignLeaseRequest) *entity.Result {
	return s.gate.Execute(ctx, "assign", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		user, err := s.users.GetByID(ctx, req.UserID)
		if _, err = lookup(user, err, "User[%d]", req.UserID); err != nil {
			return nil, err
		}
		lease, err := s.allocator.Assign(ctx, req.ID, req.UserID)
		if err != nil {
			return nil, err
		}
		return leaseModelToEntity(lease)
	})
}

// Release 取消租约的预分配
func (s *LeaseService) Release(ctx context.Context, session string, req *entity.LeaseIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "release", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		lease, err := s.allocator.Release(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return leaseModelToEntity(lease)
	})
}

func (s *LeaseService) network(ctx context.Context, id uint) (*model.VirtualNetwork, error) {
	network, err := s.networks.GetByID(ctx, id)
	return lookup(network, err, "Network[%d]", id)
}

func toLeaseEntities(leases []*model.Lease) ([]*entity.Lease, error) {
	result := make([]*entity.Lease, 0, len(leases))
	for _, l := range leases {
		e, err := leaseModelToEntity(l)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "convert lease", err)
		}
		result = append(result, e)
	}
	return result, nil
}
