package service

import (
	"context"
	"testing"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkService_Servers(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	env.seedAdminAndUser(t)
	svc := NewNetworkService(env.Repo, env.Client)
	ctx := context.Background()

	_, network, _ := env.seedZone(t, "z1", 10, 20)

	testcases := []struct {
		name   string
		call   func(context.Context, string, *entity.NetworkServerRequest) *entity.Result
		server string
		ok     bool
		status int
		dns    []string
		ntp    []string
	}{
		{name: "add dns", call: svc.AddDNS, server: "1.1.1.1", ok: true, dns: []string{"10.0.0.53", "1.1.1.1"}},
		{name: "add duplicate dns", call: svc.AddDNS, server: "1.1.1.1", status: 409},
		{name: "remove dns", call: svc.RemoveDNS, server: "10.0.0.53", ok: true, dns: []string{"1.1.1.1"}},
		{name: "remove missing dns", call: svc.RemoveDNS, server: "10.0.0.53", status: 404},
		{name: "add ntp", call: svc.AddNTP, server: "pool.ntp.org", ok: true, ntp: []string{"pool.ntp.org"}},
		{name: "remove ntp", call: svc.RemoveNTP, server: "pool.ntp.org", ok: true, ntp: []string{}},
	}

	// 按顺序执行，每一步依赖上一步的状态
	for _, tc := range testcases {
		result := tc.call(ctx, testAdminSession, &entity.NetworkServerRequest{ID: network.ID, Server: tc.server})
		if !tc.ok {
			assert.False(t, result.OK, tc.name)
			assert.Equal(t, tc.status, result.StatusCode(), tc.name)
			continue
		}
		require.True(t, result.OK, "%s: %s", tc.name, result.Message)

		stored, err := env.Networks.GetByID(ctx, network.ID)
		require.NoError(t, err)
		if tc.dns != nil {
			assert.Equal(t, tc.dns, stored.DNS, tc.name)
		}
		if tc.ntp != nil {
			assert.ElementsMatch(t, tc.ntp, stored.NTP, tc.name)
		}
	}

	result := svc.AddDNS(ctx, testUserSession, &entity.NetworkServerRequest{ID: network.ID, Server: "9.9.9.9"})
	assert.False(t, result.OK)
	assert.Equal(t, 403, result.StatusCode())
}

func TestNetworkService_Leases(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	env.seedAdminAndUser(t)
	svc := NewNetworkService(env.Repo, env.Client)
	ctx := context.Background()

	_, network, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2")

	result := svc.AddLease(ctx, testAdminSession, &entity.AddLeaseRequest{
		ID:    network.ID,
		Lease: entity.LeaseSpec{Name: "extra", Address: "10.0.0.9"},
	})
	require.True(t, result.OK, result.Message)
	added := result.Payload.(*entity.IDResponse)

	result = svc.AddLease(ctx, testAdminSession, &entity.AddLeaseRequest{
		ID:    network.ID,
		Lease: entity.LeaseSpec{Name: "extra", Address: "10.0.0.10"},
	})
	assert.False(t, result.OK)
	assert.Equal(t, 409, result.StatusCode())

	result = svc.Info(ctx, testUserSession, &entity.NetworkIDRequest{ID: network.ID})
	require.True(t, result.OK, result.Message)
	assert.Len(t, result.Payload.(*entity.VirtualNetwork).Leases, 2)

	require.NoError(t, env.Leases.SetUsed(ctx, []uint{leases[0].ID}, true))
	result = svc.RemoveLease(ctx, testAdminSession, &entity.RemoveLeaseRequest{ID: network.ID, LeaseID: leases[0].ID})
	assert.False(t, result.OK)
	assert.Equal(t, 409, result.StatusCode())

	result = svc.RemoveLease(ctx, testAdminSession, &entity.RemoveLeaseRequest{ID: network.ID, LeaseID: added.ID})
	require.True(t, result.OK, result.Message)

	result = svc.Pool(ctx, testUserSession, &entity.NetworkPoolRequest{Zone: "z1"})
	require.True(t, result.OK, result.Message)
	networks := result.Payload.([]*entity.VirtualNetwork)
	require.Len(t, networks, 1)
	assert.Len(t, networks[0].Leases, 1)
}

func TestNetworkService_RemoveLeaseTakenConcurrently(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	env.seedAdminAndUser(t)
	svc := NewNetworkService(env.Repo, env.Client)
	ctx := context.Background()

	_, network, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2")
	id := leases[0].ID

	// 读取租约之后、删除之前被虚拟机占用
	svc.leases = &hookedLeases{
		LeaseRepository: env.Leases,
		beforeWrite: func() {
			require.NoError(t, env.Leases.SetUsed(ctx, []uint{id}, true))
		},
	}

	result := svc.RemoveLease(ctx, testAdminSession, &entity.RemoveLeaseRequest{ID: network.ID, LeaseID: id})
	assert.False(t, result.OK)
	assert.Equal(t, 409, result.StatusCode())

	stored, err := env.Leases.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Used)
}
