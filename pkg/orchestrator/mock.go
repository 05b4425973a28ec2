package orchestrator

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient 是 Client 的 mock 实现
// 用于测试，不需要真实的编排器
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

// NewMockClient 创建 mock 客户端
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Authenticate(ctx context.Context, session string) (AuthClass, string, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(AuthClass), args.String(1), args.Error(2)
}

func (m *MockClient) AllocateUser(ctx context.Context, session, name, password string) (int, error) {
	args := m.Called(ctx, session, name, password)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) DeleteUser(ctx context.Context, session string, id int) error {
	args := m.Called(ctx, session, id)
	return args.Error(0)
}

func (m *MockClient) AllocateCluster(ctx context.Context, session, name string) (int, error) {
	args := m.Called(ctx, session, name)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) DeleteCluster(ctx context.Context, session string, id int) error {
	args := m.Called(ctx, session, id)
	return args.Error(0)
}

func (m *MockClient) ClusterInfo(ctx context.Context, session string, id int) (*Cluster, error) {
	args := m.Called(ctx, session, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cluster), args.Error(1)
}

func (m *MockClient) ClusterAddHost(ctx context.Context, session string, clusterID, hostID int) error {
	args := m.Called(ctx, session, clusterID, hostID)
	return args.Error(0)
}

func (m *MockClient) ClusterDelHost(ctx context.Context, session string, clusterID, hostID int) error {
	args := m.Called(ctx, session, clusterID, hostID)
	return args.Error(0)
}

func (m *MockClient) ClusterAddVnet(ctx context.Context, session string, clusterID, vnetID int) error {
	args := m.Called(ctx, session, clusterID, vnetID)
	return args.Error(0)
}

func (m *MockClient) ClusterDelVnet(ctx context.Context, session string, clusterID, vnetID int) error {
	args := m.Called(ctx, session, clusterID, vnetID)
	return args.Error(0)
}

func (m *MockClient) AllocateHost(ctx context.Context, session, hostname string) (int, error) {
	args := m.Called(ctx, session, hostname)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) DeleteHost(ctx context.Context, session string, id int) error {
	args := m.Called(ctx, session, id)
	return args.Error(0)
}

func (m *MockClient) AllocateVnet(ctx context.Context, session, definition string) (int, error) {
	args := m.Called(ctx, session, definition)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) DeleteVnet(ctx context.Context, session string, id int) error {
	args := m.Called(ctx, session, id)
	return args.Error(0)
}

func (m *MockClient) AllocateVM(ctx context.Context, session, definition string) (int, error) {
	args := m.Called(ctx, session, definition)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) VMAction(ctx context.Context, session, action string, id int) error {
	args := m.Called(ctx, session, action, id)
	return args.Error(0)
}

func (m *MockClient) VMInfo(ctx context.Context, session string, id int) (*VM, error) {
	args := m.Called(ctx, session, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VM), args.Error(1)
}

func (m *MockClient) VMPool(ctx context.Context, session string) ([]VM, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VM), args.Error(1)
}

func (m *MockClient) SaveDisk(ctx context.Context, session string, vmID, diskID, imageID int) error {
	args := m.Called(ctx, session, vmID, diskID, imageID)
	return args.Error(0)
}

func (m *MockClient) AllocateImage(ctx context.Context, session, definition string, datastoreID int) (int, error) {
	args := m.Called(ctx, session, definition, datastoreID)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) DeleteImage(ctx context.Context, session string, id int) error {
	args := m.Called(ctx, session, id)
	return args.Error(0)
}

func (m *MockClient) ImageInfo(ctx context.Context, session string, id int) (*Image, error) {
	args := m.Called(ctx, session, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Image), args.Error(1)
}
