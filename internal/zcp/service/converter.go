// Package service 提供业务逻辑层的服务实现
package service

import (
	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jinzhu/copier"
)

// userModelToEntity 将 model.User 及其 Zone 授权转换为 entity.User
func userModelToEntity(m *model.User, zones []*model.UserZone) (*entity.User, error) {
	e := &entity.User{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	e.Zones = make([]entity.UserZone, 0, len(zones))
	for _, z := range zones {
		e.Zones = append(e.Zones, entity.UserZone{ZoneID: z.ZoneID, Quota: z.Quota})
	}
	return e, nil
}

// zoneModelToEntity 将 model.Zone 及其成员转换为 entity.Zone
func zoneModelToEntity(m *model.Zone, hosts []*model.ZoneHost, networkIDs []uint) (*entity.Zone, error) {
	e := &entity.Zone{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	e.Hosts = make([]entity.ZoneHost, 0, len(hosts))
	for _, h := range hosts {
		e.Hosts = append(e.Hosts, entity.ZoneHost{OID: h.HostOID, Hostname: h.Hostname})
	}
	e.Networks = append([]uint{}, networkIDs...)
	return e, nil
}

// networkModelToEntity 将 model.VirtualNetwork 及其租约转换为 entity.VirtualNetwork
func networkModelToEntity(m *model.VirtualNetwork, leases []*model.Lease) (*entity.VirtualNetwork, error) {
	e := &entity.VirtualNetwork{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	e.Leases = make([]entity.Lease, 0, len(leases))
	for _, l := range leases {
		le, err := leaseModelToEntity(l)
		if err != nil {
			return nil, err
		}
		e.Leases = append(e.Leases, *le)
	}
	return e, nil
}

// leaseModelToEntity 将 model.Lease 转换为 entity.Lease
func leaseModelToEntity(m *model.Lease) (*entity.Lease, error) {
	e := &entity.Lease{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	return e, nil
}

// vmTypeModelToEntity 将 model.VMType 转换为 entity.VMType
func vmTypeModelToEntity(m *model.VMType) (*entity.VMType, error) {
	e := &entity.VMType{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	return e, nil
}

// vmModelToEntity 将 model.VirtualMachine 转换为 entity.VirtualMachine
func vmModelToEntity(m *model.VirtualMachine, leaseIDs []uint) (*entity.VirtualMachine, error) {
	e := &entity.VirtualMachine{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	e.LeaseIDs = append([]uint{}, leaseIDs...)
	return e, nil
}
