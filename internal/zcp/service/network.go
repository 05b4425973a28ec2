package service

import (
	"context"
	"slices"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
)

// NetworkService 虚拟网络服务
//
// DNS、NTP 和租约池只保存在本地，用于生成虚拟机上下文。
type NetworkService struct {
	gate     *Gate
	networks repository.NetworkRepository
	leases   repository.LeaseRepository
}

// NewNetworkService 创建虚拟网络服务
func NewNetworkService(repo *repository.Repository, client orchestrator.Client) *NetworkService {
	return &NetworkService{
		gate:     NewGate("network", repository.NewUserRepository(repo.DB()), client),
		networks: repository.NewNetworkRepository(repo.DB()),
		leases:   repository.NewLeaseRepository(repo.DB()),
	}
}

// Pool 列出 Zone 中的网络
func (s *NetworkService) Pool(ctx context.Context, session string, req *entity.NetworkPoolRequest) *entity.Result {
	return s.gate.Execute(ctx, "pool", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		networks, err := s.networks.ListByZone(ctx, req.Zone)
		if err != nil {
			return nil, consistencyError("list networks", err)
		}
		result := make([]*entity.VirtualNetwork, 0, len(networks))
		for _, n := range networks {
			e, err := s.toEntity(ctx, n)
			if err != nil {
				return nil, err
			}
			result = append(result, e)
		}
		return result, nil
	})
}

// Info 查询网络及其租约
func (s *NetworkService) Info(ctx context.Context, session string, req *entity.NetworkIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "info", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		network, err := s.network(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return s.toEntity(ctx, network)
	})
}

// AddDNS 增加 DNS 服务器
func (s *NetworkService) AddDNS(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result {
	return s.gate.Execute(ctx, "add_dns", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		return nil, s.updateServers(ctx, req, "DNS", func(n *model.VirtualNetwork) *[]string { return &n.DNS }, true)
	})
}

// RemoveDNS 移除 DNS 服务器
func (s *NetworkService) RemoveDNS(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result {
	return s.gate.Execute(ctx, "remove_dns", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		return nil, s.updateServers(ctx, req, "DNS", func(n *model.VirtualNetwork) *[]string { return &n.DNS }, false)
	})
}

// AddNTP 增加 NTP 服务器
func (s *NetworkService) AddNTP(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result {
	return s.gate.Execute(ctx, "add_ntp", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		return nil, s.updateServers(ctx, req, "NTP", func(n *model.VirtualNetwork) *[]string { return &n.NTP }, true)
	})
}

// RemoveNTP 移除 NTP 服务器
func (s *NetworkService) RemoveNTP(ctx context.Context, session string, req *entity.NetworkServerRequest) *entity.Result {
	return s.gate.Execute(ctx, "remove_ntp", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		return nil, s.updateServers(ctx, req, "NTP", func(n *model.VirtualNetwork) *[]string { return &n.NTP }, false)
	})
}

// AddLease 向网络的租约池加入租约
func (s *NetworkService) AddLease(ctx context.Context, session string, req *entity.AddLeaseRequest) *entity.Result {
	return s.gate.Execute(ctx, "add_lease", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		network, err := s.network(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if req.Lease.Name == "" || req.Lease.Address == "" {
			return nil, apierror.New(apierror.ErrInvalidParameter, "lease name and address are required")
		}
		lease := &model.Lease{
			Name:       req.Lease.Name,
			Address:    req.Lease.Address,
			AssignedTo: model.Unassigned,
			VnetID:     network.ID,
		}
		if err := s.leases.Create(ctx, lease); err != nil {
			return nil, createError("Lease["+req.Lease.Name+"]", err)
		}
		return &entity.IDResponse{ID: lease.ID}, nil
	})
}

// RemoveLease 从网络的租约池移除未使用的租约
func (s *NetworkService) RemoveLease(ctx context.Context, session string, req *entity.RemoveLeaseRequest) *entity.Result {
	return s.gate.Execute(ctx, "remove_lease", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		network, err := s.network(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		lease, err := s.leases.GetByID(ctx, req.LeaseID)
		if lease, err = lookup(lease, err, "Lease[%d]", req.LeaseID); err != nil {
			return nil, err
		}
		if lease.VnetID != network.ID {
			return nil, apierror.Newf(apierror.ErrNotFound, "Lease[%d] not found in Network[%s]", req.LeaseID, network.UniqueName)
		}
		// 检查与删除在同一条语句内完成，虚拟机可能在此期间占用该租约
		deleted, err := s.leases.DeleteUnused(ctx, lease.ID, network.ID)
		if err != nil {
			return nil, consistencyError("delete lease", err)
		}
		if !deleted {
			return nil, apierror.Newf(apierror.ErrConflict, "Lease[%s] is in use", lease.Name)
		}
		return nil, nil
	})
}

func (s *NetworkService) updateServers(ctx context.Context, req *entity.NetworkServerRequest, kind string, field func(*model.VirtualNetwork) *[]string, add bool) error {
	network, err := s.network(ctx, req.ID)
	if err != nil {
		return err
	}
	servers := field(network)
	idx := slices.Index(*servers, req.Server)
	switch {
	case add && idx >= 0:
		return apierror.Newf(apierror.ErrConflict, "%s server %s already exists in Network[%s]", kind, req.Server, network.UniqueName)
	case add:
		*servers = append(*servers, req.Server)
	case idx < 0:
		return apierror.Newf(apierror.ErrNotFound, "%s server %s not found in Network[%s]", kind, req.Server, network.UniqueName)
	default:
		*servers = slices.Delete(*servers, idx, idx+1)
	}
	if err := s.networks.Update(ctx, network); err != nil {
		return consistencyError("update network", err)
	}
	return nil
}

func (s *NetworkService) network(ctx context.Context, id uint) (*model.VirtualNetwork, error) {
	network, err := s.networks.GetByID(ctx, id)
	return lookup(network, err, "Network[%d]", id)
}

func (s *NetworkService) toEntity(ctx context.Context, network *model.VirtualNetwork) (*entity.VirtualNetwork, error) {
	leases, err := s.leases.ListByNetwork(ctx, network.ID)
	if err != nil {
		return nil, consistencyError("list leases", err)
	}
	e, err := networkModelToEntity(network, leases)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "convert network", err)
	}
	return e, nil
}
