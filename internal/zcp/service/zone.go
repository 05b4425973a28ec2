package service

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
)

// ZoneService Zone 服务
type ZoneService struct {
	gate        *Gate
	provisioner *Provisioner
	zones       repository.ZoneRepository
	networks    repository.NetworkRepository
	leases      repository.LeaseRepository
	vms         repository.VMRepository
}

// NewZoneService 创建 Zone 服务
func NewZoneService(repo *repository.Repository, client orchestrator.Client, provisioner *Provisioner) *ZoneService {
	return &ZoneService{
		gate:        NewGate("zone", repository.NewUserRepository(repo.DB()), client),
		provisioner: provisioner,
		zones:       repository.NewZoneRepository(repo.DB()),
		networks:    repository.NewNetworkRepository(repo.DB()),
		leases:      repository.NewLeaseRepository(repo.DB()),
		vms:         repository.NewVMRepository(repo.DB()),
	}
}

// Pool 列出所有 Zone
func (s *ZoneService) Pool(ctx context.Context, session string) *entity.Result {
	return s.gate.Execute(ctx, "pool", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		zones, err := s.zones.List(ctx)
		if err != nil {
			return nil, consistencyError("list zones", err)
		}
		result := make([]*entity.Zone, 0, len(zones))
		for _, z := range zones {
			e, err := s.toEntity(ctx, z)
			if err != nil {
				return nil, err
			}
			result = append(result, e)
		}
		return result, nil
	})
}

// Info 查询 Zone
func (s *ZoneService) Info(ctx context.Context, session string, req *entity.ZoneIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "info", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.zone(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return s.toEntity(ctx, zone)
	})
}

// Allocate 创建 Zone
func (s *ZoneService) Allocate(ctx context.Context, session string, req *entity.AllocateZoneRequest) *entity.Result {
	return s.gate.Execute(ctx, "allocate", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.provisioner.CreateZone(ctx, req)
		if err != nil {
			return nil, err
		}
		return &entity.IDResponse{ID: zone.ID}, nil
	})
}

// Delete 删除 Zone，Zone 内还有虚拟机时拒绝
func (s *ZoneService) Delete(ctx context.Context, session string, req *entity.ZoneIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "delete", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.zone(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		count, err := s.vms.CountByZone(ctx, zone.ID)
		if err != nil {
			return nil, consistencyError("count virtual machines", err)
		}
		if count > 0 {
			return nil, apierror.Newf(apierror.ErrConflict, "Zone[%s] still has %d virtual machines", zone.Name, count)
		}
		return nil, s.provisioner.DeleteZone(ctx, zone)
	})
}

// AddHost 向 Zone 加入主机
func (s *ZoneService) AddHost(ctx context.Context, session string, req *entity.AddHostRequest) *entity.Result {
	return s.gate.Execute(ctx, "add_host", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.zone(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		host, err := s.provisioner.AddHost(ctx, zone, req.Hostname)
		if err != nil {
			return nil, err
		}
		return &entity.ZoneHost{OID: host.HostOID, Hostname: host.Hostname}, nil
	})
}

// RemoveHost 从 Zone 移除主机
func (s *ZoneService) RemoveHost(ctx context.Context, session string, req *entity.RemoveHostRequest) *entity.Result {
	return s.gate.Execute(ctx, "remove_host", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.zone(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if _, err := s.provisioner.zoneHost(ctx, zone, req.HostID); err != nil {
			return nil, err
		}
		return nil, s.provisioner.RemoveHost(ctx, zone, req.HostID)
	})
}

// AddVnet 向 Zone 加入网络
func (s *ZoneService) AddVnet(ctx context.Context, session string, req *entity.AddVnetRequest) *entity.Result {
	return s.gate.Execute(ctx, "add_vnet", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.zone(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		network, err := s.provisioner.AddNetwork(ctx, zone, &req.Network)
		if err != nil {
			return nil, err
		}
		return &entity.IDResponse{ID: network.ID}, nil
	})
}

// RemoveVnet 从 Zone 移除网络，网络中还有使用中的租约时拒绝
func (s *ZoneService) RemoveVnet(ctx context.Context, session string, req *entity.RemoveVnetRequest) *entity.Result {
	return s.gate.Execute(ctx, "remove_vnet", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		zone, err := s.zone(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		network, err := s.networks.GetByID(ctx, req.NetworkID)
		if network, err = lookup(network, err, "Network[%d]", req.NetworkID); err != nil {
			return nil, err
		}
		if network.ZoneName != zone.Name {
			return nil, apierror.Newf(apierror.ErrNotFound, "Network[%d] not found in Zone[%s]", req.NetworkID, zone.Name)
		}
		used, err := s.leases.DeleteUnusedByNetwork(ctx, network.ID)
		if err != nil {
			return nil, consistencyError("delete leases", err)
		}
		if used > 0 {
			return nil, apierror.Newf(apierror.ErrConflict, "Network[%s] still has %d leases in use", network.UniqueName, used)
		}
		return nil, s.provisioner.RemoveNetwork(ctx, zone, network)
	})
}

func (s *ZoneService) zone(ctx context.Context, id uint) (*model.Zone, error) {
	zone, err := s.zones.GetByID(ctx, id)
	return lookup(zone, err, "Zone[%d]", id)
}

func (s *ZoneService) toEntity(ctx context.Context, zone *model.Zone) (*entity.Zone, error) {
	hosts, err := s.zones.Hosts(ctx, zone.ID)
	if err != nil {
		return nil, consistencyError("list hosts", err)
	}
	networkIDs, err := s.zones.NetworkIDs(ctx, zone.ID)
	if err != nil {
		return nil, consistencyError("list networks", err)
	}
	e, err := zoneModelToEntity(zone, hosts, networkIDs)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "convert zone", err)
	}
	return e, nil
}
