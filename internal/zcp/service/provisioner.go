package service

import (
	"context"
	"fmt"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/jimyag/zcp/pkg/saga"
	"github.com/rs/zerolog"
)

// Provisioner 跨外部编排器和本地存储的 Zone、主机、网络生命周期
//
// 管理类调用都使用管理员会话。
type Provisioner struct {
	repo     *repository.Repository
	zones    repository.ZoneRepository
	networks repository.NetworkRepository
	leases   repository.LeaseRepository
	users    repository.UserRepository

	client       orchestrator.Client
	adminSession string
	bridge       string
}

// NewProvisioner 创建 Provisioner
func NewProvisioner(repo *repository.Repository, client orchestrator.Client, adminSession, bridge string) *Provisioner {
	return &Provisioner{
		repo:         repo,
		zones:        repository.NewZoneRepository(repo.DB()),
		networks:     repository.NewNetworkRepository(repo.DB()),
		leases:       repository.NewLeaseRepository(repo.DB()),
		users:        repository.NewUserRepository(repo.DB()),
		client:       client,
		adminSession: adminSession,
		bridge:       bridge,
	}
}

// CreateZone 创建 Zone 并加入声明的主机和网络
//
// 任一主机或网络失败时删除整个 Zone 并返回该失败。
func (p *Provisioner) CreateZone(ctx context.Context, req *entity.AllocateZoneRequest) (*model.Zone, error) {
	logger := zerolog.Ctx(ctx)

	if _, err := p.zones.GetByName(ctx, req.Name); err == nil {
		return nil, apierror.Newf(apierror.ErrConflict, "Zone[%s] already exists", req.Name)
	} else if !repository.IsNotFound(err) {
		return nil, consistencyError("load zone", err)
	}

	clusterID, err := p.client.AllocateCluster(ctx, p.adminSession, req.Name)
	if err != nil {
		return nil, externalError("allocate cluster", err)
	}

	s := saga.New(ctx, "create zone")
	s.Defer("delete cluster", func(ctx context.Context) error {
		return p.client.DeleteCluster(ctx, p.adminSession, clusterID)
	})

	zone := &model.Zone{
		OID:         clusterID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := p.zones.Create(ctx, zone); err != nil {
		return nil, s.Abort(ctx, createError(fmt.Sprintf("Zone[%s]", req.Name), err))
	}
	s.Commit()

	for _, hostname := range req.Hosts {
		if _, err := p.AddHost(ctx, zone, hostname); err != nil {
			return nil, p.abortZone(ctx, zone, err)
		}
	}
	for i := range req.Networks {
		if _, err := p.AddNetwork(ctx, zone, &req.Networks[i]); err != nil {
			return nil, p.abortZone(ctx, zone, err)
		}
	}

	logger.Info().
		Uint("zone_id", zone.ID).
		Int("cluster_id", zone.OID).
		Str("name", zone.Name).
		Msg("Zone created")
	return zone, nil
}

// abortZone 删除创建到一半的 Zone，返回原始错误
func (p *Provisioner) abortZone(ctx context.Context, zone *model.Zone, cause error) error {
	if err := p.DeleteZone(ctx, zone); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			AnErr("cause", cause).
			Str("zone", zone.Name).
			Msg("Failed to clean up partially created zone")
	}
	return cause
}

// DeleteZone 尽力删除 Zone：依次移除所有网络、主机、外部集群和本地记录
//
// 每一步失败都会记录下来但不会中断后续步骤，返回的错误按删除顺序以分号连接。
func (p *Provisioner) DeleteZone(ctx context.Context, zone *model.Zone) error {
	acc := &saga.Accumulator{}

	networkIDs, err := p.zones.NetworkIDs(ctx, zone.ID)
	if err != nil {
		acc.AddMessage(fmt.Sprintf("list networks of Zone[%s]: %v", zone.Name, err))
	}
	for _, id := range networkIDs {
		network, err := p.networks.GetByID(ctx, id)
		if err != nil {
			acc.AddMessage(fmt.Sprintf("load Network[%d]: %v", id, err))
			continue
		}
		if err := p.RemoveNetwork(ctx, zone, network); err != nil {
			acc.AddMessage(fmt.Sprintf("remove Network[%s]: %s", network.UniqueName, apierror.Message(err)))
		}
	}

	hosts, err := p.zones.Hosts(ctx, zone.ID)
	if err != nil {
		acc.AddMessage(fmt.Sprintf("list hosts of Zone[%s]: %v", zone.Name, err))
	}
	for _, host := range hosts {
		if err := p.RemoveHost(ctx, zone, host.HostOID); err != nil {
			acc.AddMessage(fmt.Sprintf("remove Host[%d]: %s", host.HostOID, apierror.Message(err)))
		}
	}

	if err := p.client.DeleteCluster(ctx, p.adminSession, zone.OID); err != nil {
		acc.AddMessage(fmt.Sprintf("delete Cluster[%d]: %s", zone.OID, orchestrator.RemoteMessage(err)))
	}
	if err := p.users.RemoveZoneFromAll(ctx, zone.ID); err != nil {
		acc.AddMessage(fmt.Sprintf("revoke Zone[%s] from users: %v", zone.Name, err))
	}
	if err := p.zones.Delete(ctx, zone.ID); err != nil {
		acc.AddMessage(fmt.Sprintf("delete Zone[%s]: %v", zone.Name, err))
	}

	if err := acc.Err(); err != nil {
		return apierror.WrapError(apierror.ErrExternalCall, err.Error(), err)
	}
	zerolog.Ctx(ctx).Info().Str("zone", zone.Name).Msg("Zone deleted")
	return nil
}

// AddHost 在外部编排器中创建主机并加入 Zone 的集群
func (p *Provisioner) AddHost(ctx context.Context, zone *model.Zone, hostname string) (*model.ZoneHost, error) {
	hostID, err := p.client.AllocateHost(ctx, p.adminSession, hostname)
	if err != nil {
		return nil, externalError(fmt.Sprintf("allocate Host[%s]", hostname), err)
	}

	s := saga.New(ctx, "add host")
	s.Defer("delete host", func(ctx context.Context) error {
		return p.client.DeleteHost(ctx, p.adminSession, hostID)
	})

	if err := p.client.ClusterAddHost(ctx, p.adminSession, zone.OID, hostID); err != nil {
		return nil, s.Abort(ctx, externalError(fmt.Sprintf("add Host[%s] to Zone[%s]", hostname, zone.Name), err))
	}
	s.Defer("remove host from cluster", func(ctx context.Context) error {
		return p.client.ClusterDelHost(ctx, p.adminSession, zone.OID, hostID)
	})

	host := &model.ZoneHost{ZoneID: zone.ID, HostOID: hostID, Hostname: hostname}
	if err := p.zones.AddHost(ctx, host); err != nil {
		return nil, s.Abort(ctx, consistencyError(fmt.Sprintf("save Host[%s]", hostname), err))
	}
	s.Commit()

	zerolog.Ctx(ctx).Info().
		Str("zone", zone.Name).
		Str("hostname", hostname).
		Int("host_id", hostID).
		Msg("Host added to zone")
	return host, nil
}

// RemoveHost 将主机移出 Zone 的集群并删除
func (p *Provisioner) RemoveHost(ctx context.Context, zone *model.Zone, hostID int) error {
	if err := p.client.ClusterDelHost(ctx, p.adminSession, zone.OID, hostID); err != nil {
		return externalError(fmt.Sprintf("remove Host[%d] from Zone[%s]", hostID, zone.Name), err)
	}
	if err := p.client.DeleteHost(ctx, p.adminSession, hostID); err != nil {
		return externalError(fmt.Sprintf("delete Host[%d]", hostID), err)
	}
	if err := p.zones.RemoveHost(ctx, zone.ID, hostID); err != nil {
		return consistencyError(fmt.Sprintf("remove Host[%d]", hostID), err)
	}
	return nil
}

// zoneHost 返回 Zone 中的主机
func (p *Provisioner) zoneHost(ctx context.Context, zone *model.Zone, hostID int) (*model.ZoneHost, error) {
	hosts, err := p.zones.Hosts(ctx, zone.ID)
	if err != nil {
		return nil, consistencyError("list hosts", err)
	}
	for _, h := range hosts {
		if h.HostOID == hostID {
			return h, nil
		}
	}
	return nil, apierror.Newf(apierror.ErrNotFound, "Host[%d] not found in Zone[%s]", hostID, zone.Name)
}
