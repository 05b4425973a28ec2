package service

import (
	"context"
	"testing"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProvisioner_CreateZone(t *testing.T) {
	t.Parallel()

	t.Run("hosts and networks", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
		ctx := context.Background()

		env.Client.On("AllocateCluster", mock.Anything, testAdminSession, "z1").Return(10, nil)
		env.Client.On("AllocateHost", mock.Anything, testAdminSession, "node-1").Return(30, nil)
		env.Client.On("ClusterAddHost", mock.Anything, testAdminSession, 10, 30).Return(nil)

		var vnetDef string
		env.Client.On("AllocateVnet", mock.Anything, testAdminSession, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { vnetDef = args.String(2) }).
			Return(20, nil)
		env.Client.On("ClusterAddVnet", mock.Anything, testAdminSession, 10, 20).Return(nil)

		zone, err := p.CreateZone(ctx, &entity.AllocateZoneRequest{
			Name:  "z1",
			Hosts: []string{"node-1"},
			Networks: []entity.NetworkSpec{{
				Name:    "public",
				Address: "10.0.0.0",
				Netmask: "255.255.255.0",
				Gateway: "10.0.0.1",
				DNS:     []string{"10.0.0.53", "8.8.8.8"},
				Leases: []entity.LeaseSpec{
					{Name: "ip-2", Address: "10.0.0.2"},
					{Name: "ip-3", Address: "10.0.0.3"},
				},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, 10, zone.OID)

		assert.Contains(t, vnetDef, `NAME = "z1::public"`)
		assert.Contains(t, vnetDef, `BRIDGE = "br0"`)
		assert.Contains(t, vnetDef, `DNS = "10.0.0.53 8.8.8.8"`)
		assert.Contains(t, vnetDef, `LEASES = [ IP = "10.0.0.2" ]`)

		hosts, err := env.Zones.Hosts(ctx, zone.ID)
		require.NoError(t, err)
		require.Len(t, hosts, 1)
		assert.Equal(t, 30, hosts[0].HostOID)
		assert.Equal(t, "node-1", hosts[0].Hostname)

		network, err := env.Networks.GetByUniqueName(ctx, "z1::public")
		require.NoError(t, err)
		assert.Equal(t, 20, network.OID)

		leases, err := env.Leases.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		require.Len(t, leases, 2)
		for _, l := range leases {
			assert.False(t, l.Used)
			assert.Equal(t, model.Unassigned, l.AssignedTo)
		}
		env.Client.AssertExpectations(t)
	})

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
		require.NoError(t, env.Zones.Create(context.Background(), &model.Zone{OID: 1, Name: "z1"}))

		_, err := p.CreateZone(context.Background(), &entity.AllocateZoneRequest{Name: "z1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, apierror.ErrConflict)
		env.Client.AssertNotCalled(t, "AllocateCluster", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("host failure removes the zone", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
		ctx := context.Background()

		env.Client.On("AllocateCluster", mock.Anything, testAdminSession, "z1").Return(10, nil)
		env.Client.On("AllocateHost", mock.Anything, testAdminSession, "node-1").
			Return(0, callError("one.host.allocate", "no such host"))
		env.Client.On("DeleteCluster", mock.Anything, testAdminSession, 10).Return(nil)

		_, err := p.CreateZone(ctx, &entity.AllocateZoneRequest{Name: "z1", Hosts: []string{"node-1"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, apierror.ErrExternalCall)
		assert.Equal(t, "allocate Host[node-1]: no such host", apierror.Message(err))

		_, err = env.Zones.GetByName(ctx, "z1")
		assert.True(t, repository.IsNotFound(err))
		env.Client.AssertCalled(t, "DeleteCluster", mock.Anything, testAdminSession, 10)
	})

	t.Run("record failure deletes the cluster", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
		ctx := context.Background()

		// 另一个 Zone 已经占用了外部集群 ID
		require.NoError(t, env.Zones.Create(ctx, &model.Zone{OID: 10, Name: "other"}))
		env.Client.On("AllocateCluster", mock.Anything, testAdminSession, "z1").Return(10, nil)
		env.Client.On("DeleteCluster", mock.Anything, testAdminSession, 10).Return(nil)

		_, err := p.CreateZone(ctx, &entity.AllocateZoneRequest{Name: "z1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, apierror.ErrConflict)
		env.Client.AssertCalled(t, "DeleteCluster", mock.Anything, testAdminSession, 10)
	})
}

func TestProvisioner_AddNetwork_Compensation(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
	ctx := context.Background()

	zone := &model.Zone{OID: 10, Name: "z1"}
	require.NoError(t, env.Zones.Create(ctx, zone))

	env.Client.On("AllocateVnet", mock.Anything, testAdminSession, mock.AnythingOfType("string")).Return(20, nil)
	env.Client.On("ClusterAddVnet", mock.Anything, testAdminSession, 10, 20).
		Return(callError("one.cluster.addvnet", "cluster locked"))
	env.Client.On("DeleteVnet", mock.Anything, testAdminSession, 20).Return(nil)

	_, err := p.AddNetwork(ctx, zone, &entity.NetworkSpec{Name: "public"})
	require.Error(t, err)
	assert.Equal(t, "add Network[z1::public] to Zone[z1]: cluster locked", apierror.Message(err))

	_, err = env.Networks.GetByUniqueName(ctx, "z1::public")
	assert.True(t, repository.IsNotFound(err))
	env.Client.AssertCalled(t, "DeleteVnet", mock.Anything, testAdminSession, 20)

	ids, err := env.Zones.NetworkIDs(ctx, zone.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProvisioner_AddNetwork_LeaseBatchRolledBack(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
	ctx := context.Background()

	zone := &model.Zone{OID: 10, Name: "z1"}
	require.NoError(t, env.Zones.Create(ctx, zone))

	env.Client.On("AllocateVnet", mock.Anything, testAdminSession, mock.AnythingOfType("string")).Return(20, nil)
	env.Client.On("ClusterAddVnet", mock.Anything, testAdminSession, 10, 20).Return(nil)
	env.Client.On("ClusterDelVnet", mock.Anything, testAdminSession, 10, 20).Return(nil)
	env.Client.On("DeleteVnet", mock.Anything, testAdminSession, 20).Return(nil)

	// 第二个租约重名，整批租约回滚
	_, err := p.AddNetwork(ctx, zone, &entity.NetworkSpec{
		Name: "public",
		Leases: []entity.LeaseSpec{
			{Name: "vm-1.z1", Address: "10.0.0.2"},
			{Name: "vm-1.z1", Address: "10.0.0.3"},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.Equal(t, "Lease[vm-1.z1] already exists", apierror.Message(err))

	var count int64
	require.NoError(t, env.Repo.DB().Model(&model.Lease{}).Count(&count).Error)
	assert.Zero(t, count)
	_, err = env.Networks.GetByUniqueName(ctx, "z1::public")
	assert.True(t, repository.IsNotFound(err))
	ids, err := env.Zones.NetworkIDs(ctx, zone.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	env.Client.AssertCalled(t, "DeleteVnet", mock.Anything, testAdminSession, 20)
}

func TestProvisioner_DeleteZone(t *testing.T) {
	t.Parallel()

	t.Run("clean removal", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
		ctx := context.Background()

		zone, network, _ := env.seedZone(t, "z1", 10, 20, "10.0.0.2")
		require.NoError(t, env.Zones.AddHost(ctx, &model.ZoneHost{ZoneID: zone.ID, HostOID: 30, Hostname: "node-1"}))
		alice := env.createUser(t, "alice", 5, true)
		require.NoError(t, env.Users.SetZoneQuota(ctx, alice.ID, zone.ID, 2))

		env.Client.On("ClusterDelVnet", mock.Anything, testAdminSession, 10, 20).Return(nil)
		env.Client.On("DeleteVnet", mock.Anything, testAdminSession, 20).Return(nil)
		env.Client.On("ClusterDelHost", mock.Anything, testAdminSession, 10, 30).Return(nil)
		env.Client.On("DeleteHost", mock.Anything, testAdminSession, 30).Return(nil)
		env.Client.On("DeleteCluster", mock.Anything, testAdminSession, 10).Return(nil)

		require.NoError(t, p.DeleteZone(ctx, zone))

		_, err := env.Zones.GetByID(ctx, zone.ID)
		assert.True(t, repository.IsNotFound(err))
		_, err = env.Networks.GetByID(ctx, network.ID)
		assert.True(t, repository.IsNotFound(err))
		leases, err := env.Leases.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		assert.Empty(t, leases)
		zones, err := env.Users.Zones(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, zones)
		env.Client.AssertExpectations(t)
	})

	t.Run("every step attempted and failures joined in order", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		p := NewProvisioner(env.Repo, env.Client, testAdminSession, "br0")
		ctx := context.Background()

		zone, _, _ := env.seedZone(t, "z1", 10, 20)
		require.NoError(t, env.Zones.AddHost(ctx, &model.ZoneHost{ZoneID: zone.ID, HostOID: 30, Hostname: "node-1"}))

		env.Client.On("ClusterDelVnet", mock.Anything, testAdminSession, 10, 20).
			Return(callError("one.cluster.delvnet", "vnet busy"))
		env.Client.On("DeleteVnet", mock.Anything, testAdminSession, 20).Return(nil)
		env.Client.On("ClusterDelHost", mock.Anything, testAdminSession, 10, 30).Return(nil)
		env.Client.On("DeleteHost", mock.Anything, testAdminSession, 30).
			Return(callError("one.host.delete", "host busy"))
		env.Client.On("DeleteCluster", mock.Anything, testAdminSession, 10).
			Return(callError("one.cluster.delete", "cluster busy"))

		err := p.DeleteZone(ctx, zone)
		require.Error(t, err)
		assert.ErrorIs(t, err, apierror.ErrExternalCall)
		assert.Equal(t,
			"remove Network[z1::public]: remove from Cluster[10]: vnet busy;"+
				"remove Host[30]: delete Host[30]: host busy;"+
				"delete Cluster[10]: cluster busy",
			apierror.Message(err))

		// 本地记录仍然被删除
		_, err = env.Zones.GetByID(ctx, zone.ID)
		assert.True(t, repository.IsNotFound(err))
		env.Client.AssertExpectations(t)
	})
}

func TestZoneService(t *testing.T) {
	t.Parallel()

	t.Run("allocate requires admin", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		env.seedAdminAndUser(t)
		svc := NewZoneService(env.Repo, env.Client, NewProvisioner(env.Repo, env.Client, testAdminSession, "br0"))

		result := svc.Allocate(context.Background(), testUserSession, &entity.AllocateZoneRequest{Name: "z1"})
		assert.False(t, result.OK)
		assert.Equal(t, 403, result.StatusCode())
		env.Client.AssertNotCalled(t, "AllocateCluster", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("allocate and info", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		env.seedAdminAndUser(t)
		svc := NewZoneService(env.Repo, env.Client, NewProvisioner(env.Repo, env.Client, testAdminSession, "br0"))
		env.Client.On("AllocateCluster", mock.Anything, testAdminSession, "z1").Return(10, nil)

		result := svc.Allocate(context.Background(), testAdminSession, &entity.AllocateZoneRequest{Name: "z1", Description: "first"})
		require.True(t, result.OK, result.Message)
		created, ok := result.Payload.(*entity.IDResponse)
		require.True(t, ok)

		result = svc.Info(context.Background(), testUserSession, &entity.ZoneIDRequest{ID: created.ID})
		require.True(t, result.OK, result.Message)
		zone, ok := result.Payload.(*entity.Zone)
		require.True(t, ok)
		assert.Equal(t, "z1", zone.Name)
		assert.Equal(t, 10, zone.OID)
		assert.Equal(t, "first", zone.Description)
	})

	t.Run("delete refused while virtual machines exist", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		_, alice := env.seedAdminAndUser(t)
		svc := NewZoneService(env.Repo, env.Client, NewProvisioner(env.Repo, env.Client, testAdminSession, "br0"))
		ctx := context.Background()

		zone, _, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2")
		require.NoError(t, env.VMs.Create(ctx, &model.VirtualMachine{
			OID: 42, UserID: alice.ID, ZoneID: zone.ID, LeaseID: leases[0].ID, Hostname: "vm-1",
		}, nil))

		result := svc.Delete(ctx, testAdminSession, &entity.ZoneIDRequest{ID: zone.ID})
		assert.False(t, result.OK)
		assert.Equal(t, 409, result.StatusCode())
		env.Client.AssertNotCalled(t, "DeleteCluster", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("remove vnet refused while leases are used", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		env.seedAdminAndUser(t)
		svc := NewZoneService(env.Repo, env.Client, NewProvisioner(env.Repo, env.Client, testAdminSession, "br0"))
		ctx := context.Background()

		zone, network, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2")
		require.NoError(t, env.Leases.SetUsed(ctx, []uint{leases[0].ID}, true))

		result := svc.RemoveVnet(ctx, testAdminSession, &entity.RemoveVnetRequest{ID: zone.ID, NetworkID: network.ID})
		assert.False(t, result.OK)
		assert.Equal(t, 409, result.StatusCode())
		env.Client.AssertNotCalled(t, "DeleteVnet", mock.Anything, mock.Anything, mock.Anything)

		remaining, err := env.Leases.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})

	t.Run("remove vnet refused when a lease is taken concurrently", func(t *testing.T) {
		t.Parallel()

		env := setupTestEnv(t)
		env.seedAdminAndUser(t)
		svc := NewZoneService(env.Repo, env.Client, NewProvisioner(env.Repo, env.Client, testAdminSession, "br0"))
		ctx := context.Background()

		zone, network, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2", "10.0.0.3")
		svc.leases = &hookedLeases{
			LeaseRepository: env.Leases,
			beforeWrite: func() {
				require.NoError(t, env.Leases.SetUsed(ctx, []uint{leases[1].ID}, true))
			},
		}

		result := svc.RemoveVnet(ctx, testAdminSession, &entity.RemoveVnetRequest{ID: zone.ID, NetworkID: network.ID})
		assert.False(t, result.OK)
		assert.Equal(t, 409, result.StatusCode())
		env.Client.AssertNotCalled(t, "DeleteVnet", mock.Anything, mock.Anything, mock.Anything)

		remaining, err := env.Leases.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 2)
	})
}
