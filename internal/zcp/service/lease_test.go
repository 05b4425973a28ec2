package service

import (
	"context"
	"testing"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseAllocator_AssignRelease(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	allocator := NewLeaseAllocator(env.Leases)
	ctx := context.Background()

	_, _, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2")
	id := leases[0].ID

	lease, err := allocator.Assign(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lease.AssignedTo)

	// 重复预分配给同一用户是允许的
	_, err = allocator.Assign(ctx, id, 7)
	require.NoError(t, err)

	_, err = allocator.Assign(ctx, id, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrConflict)

	lease, err = allocator.Release(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Unassigned, lease.AssignedTo)

	_, err = allocator.Release(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrConflict)

	stored, err := env.Leases.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, leases[0].Name, stored.Name)
	assert.Equal(t, leases[0].Address, stored.Address)
	assert.Equal(t, leases[0].VnetID, stored.VnetID)
	assert.Equal(t, model.Unassigned, stored.AssignedTo)
	assert.False(t, stored.Used)

	_, err = allocator.Assign(ctx, id+100, 7)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

// hookedLeases 在条件写入之前执行 beforeWrite，模拟其它服务在读与写之间的并发写入
type hookedLeases struct {
	repository.LeaseRepository
	beforeWrite func()
}

func (h *hookedLeases) Assign(ctx context.Context, id, userID uint) (bool, error) {
	h.beforeWrite()
	return h.LeaseRepository.Assign(ctx, id, userID)
}

func (h *hookedLeases) Unassign(ctx context.Context, id uint) (bool, error) {
	h.beforeWrite()
	return h.LeaseRepository.Unassign(ctx, id)
}

func (h *hookedLeases) DeleteUnused(ctx context.Context, id, vnetID uint) (bool, error) {
	h.beforeWrite()
	return h.LeaseRepository.DeleteUnused(ctx, id, vnetID)
}

func (h *hookedLeases) DeleteUnusedByNetwork(ctx context.Context, vnetID uint) (int64, error) {
	h.beforeWrite()
	return h.LeaseRepository.DeleteUnusedByNetwork(ctx, vnetID)
}

func TestLeaseAllocator_KeepsConcurrentUsed(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	ctx := context.Background()

	_, _, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2")
	id := leases[0].ID

	// 虚拟机分配在预分配读写之间占用了租约
	allocator := NewLeaseAllocator(&hookedLeases{
		LeaseRepository: env.Leases,
		beforeWrite: func() {
			require.NoError(t, env.Leases.SetUsed(ctx, []uint{id}, true))
		},
	})

	lease, err := allocator.Assign(ctx, id, 7)
	require.NoError(t, err)
	assert.True(t, lease.Used)
	assert.Equal(t, int64(7), lease.AssignedTo)

	lease, err = allocator.Release(ctx, id)
	require.NoError(t, err)
	assert.True(t, lease.Used)
	assert.Equal(t, model.Unassigned, lease.AssignedTo)

	stored, err := env.Leases.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Used)
}

func TestLeaseAllocator_FindAvailable(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	allocator := NewLeaseAllocator(env.Leases)
	ctx := context.Background()

	_, network, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5")

	// .2 使用中，.3 预分配给其他用户，.4 预分配给调用方，.5 未预分配
	require.NoError(t, env.Leases.SetUsed(ctx, []uint{leases[0].ID}, true))
	_, err := allocator.Assign(ctx, leases[1].ID, 8)
	require.NoError(t, err)
	_, err = allocator.Assign(ctx, leases[2].ID, 7)
	require.NoError(t, err)

	available, err := allocator.FindAvailable(ctx, network.ID, 7)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "10.0.0.4", available[0].Address)
	assert.Equal(t, "10.0.0.5", available[1].Address)

	for _, l := range available {
		assert.False(t, l.Used)
		assert.True(t, l.AssignedTo < 0 || l.AssignedTo == 7)
	}

	picked, err := allocator.Pick(ctx, network, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, leases[2].ID, picked.ID)

	picked, err = allocator.Pick(ctx, network, 7, map[uint]bool{leases[2].ID: true})
	require.NoError(t, err)
	assert.Equal(t, leases[3].ID, picked.ID)

	_, err = allocator.Pick(ctx, network, 7, map[uint]bool{leases[2].ID: true, leases[3].ID: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	assert.Equal(t, "no available lease in Network[z1::public]", apierror.Message(err))
}

func TestLeaseService(t *testing.T) {
	t.Parallel()

	env := setupTestEnv(t)
	_, alice := env.seedAdminAndUser(t)
	svc := NewLeaseService(env.Repo, env.Client, NewLeaseAllocator(env.Leases))
	ctx := context.Background()

	_, network, leases := env.seedZone(t, "z1", 10, 20, "10.0.0.2", "10.0.0.3")

	result := svc.Assign(ctx, testUserSession, &entity.AssignLeaseRequest{ID: leases[0].ID, UserID: alice.ID})
	assert.False(t, result.OK)
	assert.Equal(t, 403, result.StatusCode())

	result = svc.Assign(ctx, testAdminSession, &entity.AssignLeaseRequest{ID: leases[0].ID, UserID: alice.ID + 100})
	assert.False(t, result.OK)
	assert.Equal(t, 404, result.StatusCode())

	result = svc.Assign(ctx, testAdminSession, &entity.AssignLeaseRequest{ID: leases[0].ID, UserID: alice.ID})
	require.True(t, result.OK, result.Message)
	assert.Equal(t, int64(alice.ID), result.Payload.(*entity.Lease).AssignedTo)

	result = svc.Pool(ctx, testUserSession, &entity.LeasePoolRequest{NetworkID: network.ID})
	require.True(t, result.OK, result.Message)
	assert.Len(t, result.Payload.([]*entity.Lease), 2)

	result = svc.Available(ctx, testUserSession, &entity.LeasePoolRequest{NetworkID: network.ID})
	require.True(t, result.OK, result.Message)
	assert.Len(t, result.Payload.([]*entity.Lease), 2)

	result = svc.Release(ctx, testAdminSession, &entity.LeaseIDRequest{ID: leases[0].ID})
	require.True(t, result.OK, result.Message)
	assert.Equal(t, model.Unassigned, result.Payload.(*entity.Lease).AssignedTo)

	result = svc.Pool(ctx, testUserSession, &entity.LeasePoolRequest{NetworkID: network.ID + 100})
	assert.False(t, result.OK)
	assert.Equal(t, 404, result.StatusCode())
}
