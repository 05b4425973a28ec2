package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAdminSession = "oneadmin:admin-secret"
	testUserSession  = "alice:alice-secret"
)

// testEnv 每个测试用例独立的数据库、mock 编排器和仓库
type testEnv struct {
	Repo    *repository.Repository
	Client  *orchestrator.MockClient
	TempDir string

	Users    repository.UserRepository
	Zones    repository.ZoneRepository
	Networks repository.NetworkRepository
	Leases   repository.LeaseRepository
	VMTypes  repository.VMTypeRepository
	VMs      repository.VMRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()
	repo, err := repository.New(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(tmpDir)
	})

	return &testEnv{
		Repo:     repo,
		Client:   orchestrator.NewMockClient(),
		TempDir:  tmpDir,
		Users:    repository.NewUserRepository(repo.DB()),
		Zones:    repository.NewZoneRepository(repo.DB()),
		Networks: repository.NewNetworkRepository(repo.DB()),
		Leases:   repository.NewLeaseRepository(repo.DB()),
		VMTypes:  repository.NewVMTypeRepository(repo.DB()),
		VMs:      repository.NewVMRepository(repo.DB()),
	}
}

// createUser 创建本地用户
func (e *testEnv) createUser(t *testing.T, name string, oid int, enabled bool) *model.User {
	t.Helper()
	user := &model.User{OID: oid, Name: name, Enabled: enabled}
	require.NoError(t, e.Users.Create(context.Background(), user))
	return user
}

// authAs 让编排器将 session 认证为 class
func (e *testEnv) authAs(session string, class orchestrator.AuthClass) {
	e.Client.On("Authenticate", mock.Anything, session).Return(class, "", nil)
}

// seedAdminAndUser 创建管理员 oneadmin 和普通用户 alice 并配置认证
func (e *testEnv) seedAdminAndUser(t *testing.T) (admin, user *model.User) {
	t.Helper()
	admin = e.createUser(t, "oneadmin", 0, true)
	user = e.createUser(t, "alice", 5, true)
	e.authAs(testAdminSession, orchestrator.AuthAdmin)
	e.authAs(testUserSession, orchestrator.AuthUser)
	return admin, user
}

// seedZone 创建 Zone、其中一个网络和若干租约
func (e *testEnv) seedZone(t *testing.T, zoneName string, zoneOID, vnetOID int, addresses ...string) (*model.Zone, *model.VirtualNetwork, []*model.Lease) {
	t.Helper()
	ctx := context.Background()

	zone := &model.Zone{OID: zoneOID, Name: zoneName}
	require.NoError(t, e.Zones.Create(ctx, zone))

	network := &model.VirtualNetwork{
		OID:        vnetOID,
		Name:       "public",
		ZoneName:   zoneName,
		UniqueName: model.UniqueNetworkName(zoneName, "public"),
		Netmask:    "255.255.255.0",
		Gateway:    "10.0.0.1",
		DNS:        []string{"10.0.0.53"},
	}
	require.NoError(t, e.Networks.Create(ctx, network))
	require.NoError(t, e.Zones.AddNetwork(ctx, zone.ID, network.ID))

	leases := make([]*model.Lease, 0, len(addresses))
	for _, addr := range addresses {
		lease := &model.Lease{
			Name:       zoneName + "-" + addr,
			Address:    addr,
			AssignedTo: model.Unassigned,
			VnetID:     network.ID,
		}
		require.NoError(t, e.Leases.Create(ctx, lease))
		leases = append(leases, lease)
	}
	return zone, network, leases
}

func callError(method, message string) error {
	return &orchestrator.CallError{Method: method, Message: message}
}
