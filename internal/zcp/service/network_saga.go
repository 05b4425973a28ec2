package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/definition"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/jimyag/zcp/pkg/saga"
	"github.com/rs/zerolog"
)

// AddNetwork 创建网络及其租约并加入 Zone
//
// 本地网络记录创建之后的失败通过 RemoveNetwork 级联清理。
func (p *Provisioner) AddNetwork(ctx context.Context, zone *model.Zone, spec *entity.NetworkSpec) (*model.VirtualNetwork, error) {
	if spec.Name == "" {
		return nil, apierror.New(apierror.ErrInvalidParameter, "network name is required")
	}
	uniqueName := model.UniqueNetworkName(zone.Name, spec.Name)

	if _, err := p.networks.GetByUniqueName(ctx, uniqueName); err == nil {
		return nil, apierror.Newf(apierror.ErrConflict, "Network[%s] already exists", uniqueName)
	} else if !repository.IsNotFound(err) {
		return nil, consistencyError("load network", err)
	}

	def, err := p.networkDefinition(uniqueName, spec)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err)
	}

	vnetID, err := p.client.AllocateVnet(ctx, p.adminSession, def)
	if err != nil {
		return nil, externalError(fmt.Sprintf("allocate Network[%s]", uniqueName), err)
	}

	s := saga.New(ctx, "add network")
	s.Defer("delete vnet", func(ctx context.Context) error {
		return p.client.DeleteVnet(ctx, p.adminSession, vnetID)
	})

	network := &model.VirtualNetwork{
		OID:         vnetID,
		Name:        spec.Name,
		Description: spec.Description,
		ZoneName:    zone.Name,
		UniqueName:  uniqueName,
		Address:     spec.Address,
		Netmask:     spec.Netmask,
		Gateway:     spec.Gateway,
		DNS:         append([]string{}, spec.DNS...),
		NTP:         append([]string{}, spec.NTP...),
	}
	if err := p.networks.Create(ctx, network); err != nil {
		return nil, s.Abort(ctx, createError(fmt.Sprintf("Network[%s]", uniqueName), err))
	}
	s.Defer("delete network record", func(ctx context.Context) error {
		return p.networks.Delete(ctx, network.ID)
	})

	if err := p.client.ClusterAddVnet(ctx, p.adminSession, zone.OID, vnetID); err != nil {
		return nil, s.Abort(ctx, externalError(fmt.Sprintf("add Network[%s] to Zone[%s]", uniqueName, zone.Name), err))
	}
	s.Commit()

	// 租约与 Zone 关联一起提交，失败时不会留下部分租约
	err = p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		leases := repository.NewLeaseRepository(tx.DB())
		for _, ls := range spec.Leases {
			lease := &model.Lease{
				Name:       ls.Name,
				Address:    ls.Address,
				AssignedTo: model.Unassigned,
				VnetID:     network.ID,
			}
			if err := leases.Create(ctx, lease); err != nil {
				return createError(fmt.Sprintf("Lease[%s]", ls.Name), err)
			}
		}
		if err := repository.NewZoneRepository(tx.DB()).AddNetwork(ctx, zone.ID, network.ID); err != nil {
			return consistencyError(fmt.Sprintf("add Network[%s] to Zone[%s]", uniqueName, zone.Name), err)
		}
		return nil
	})
	if err != nil {
		return nil, p.abortNetwork(ctx, zone, network, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("zone", zone.Name).
		Str("network", uniqueName).
		Int("vnet_id", vnetID).
		Int("leases", len(spec.Leases)).
		Msg("Network added to zone")
	return network, nil
}

func (p *Provisioner) abortNetwork(ctx context.Context, zone *model.Zone, network *model.VirtualNetwork, cause error) error {
	if err := p.RemoveNetwork(ctx, zone, network); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			AnErr("cause", cause).
			Str("network", network.UniqueName).
			Msg("Failed to clean up partially created network")
	}
	return cause
}

// RemoveNetwork 级联删除网络：租约、Zone 关联、外部网络、本地记录
//
// 尽力而为，每一步失败都记录下来并继续。
func (p *Provisioner) RemoveNetwork(ctx context.Context, zone *model.Zone, network *model.VirtualNetwork) error {
	acc := &saga.Accumulator{}

	if err := p.leases.DeleteByNetwork(ctx, network.ID); err != nil {
		acc.AddMessage(fmt.Sprintf("delete leases: %v", err))
	}
	if err := p.zones.RemoveNetwork(ctx, zone.ID, network.ID); err != nil {
		acc.AddMessage(fmt.Sprintf("detach from Zone[%s]: %v", zone.Name, err))
	}
	if err := p.client.ClusterDelVnet(ctx, p.adminSession, zone.OID, network.OID); err != nil {
		acc.AddMessage(fmt.Sprintf("remove from Cluster[%d]: %s", zone.OID, orchestrator.RemoteMessage(err)))
	}
	if err := p.client.DeleteVnet(ctx, p.adminSession, network.OID); err != nil {
		acc.AddMessage(fmt.Sprintf("delete Vnet[%d]: %s", network.OID, orchestrator.RemoteMessage(err)))
	}
	if err := p.networks.Delete(ctx, network.ID); err != nil {
		acc.AddMessage(fmt.Sprintf("delete record: %v", err))
	}

	if err := acc.Err(); err != nil {
		return apierror.WrapError(apierror.ErrExternalCall, err.Error(), err)
	}
	return nil
}

// networkDefinition 生成外部网络定义：固定租约、公开、桥接
func (p *Provisioner) networkDefinition(uniqueName string, spec *entity.NetworkSpec) (string, error) {
	doc := definition.New().
		Set("NAME", uniqueName).
		Set("TYPE", "FIXED").
		Set("PUBLIC", "YES").
		Set("BRIDGE", p.bridge)
	if spec.Address != "" {
		doc.Set("NETWORK_ADDRESS", spec.Address)
	}
	if spec.Netmask != "" {
		doc.Set("NETWORK_MASK", spec.Netmask)
	}
	if spec.Gateway != "" {
		doc.Set("GATEWAY", spec.Gateway)
	}
	if len(spec.DNS) > 0 {
		doc.Set("DNS", strings.Join(spec.DNS, " "))
	}
	for _, l := range spec.Leases {
		doc.Vector("LEASES", definition.P("IP", l.Address))
	}
	return doc.Render()
}
