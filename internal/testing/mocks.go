package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/clusterengine"
)

// MockEngine is a mock implementation of clusterengine.Engine.
type MockEngine struct {
	mock.Mock
}

// CreateManager returns the configured manager. A nil manager argument
// yields a nil interface, meaning clusters are unsupported.
func (m *MockEngine) CreateManager(ctx context.Context, username string, tenancy cloud.Tenancy) (clusterengine.Manager, error) {
	args := m.Called(ctx, username, tenancy)
	manager, _ := args.Get(0).(clusterengine.Manager)
	return manager, args.Error(1)
}

// MockManager is a mock implementation of clusterengine.Manager.
type MockManager struct {
	mock.Mock
}

func (m *MockManager) ClusterTypes(ctx context.Context) ([]clusterengine.ClusterType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clusterengine.ClusterType), args.Error(1)
}

func (m *MockManager) FindClusterType(ctx context.Context, name string) (clusterengine.ClusterType, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(clusterengine.ClusterType), args.Error(1)
}

func (m *MockManager) Clusters(ctx context.Context) ([]clusterengine.Cluster, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clusterengine.Cluster), args.Error(1)
}

func (m *MockManager) FindCluster(ctx context.Context, id string) (clusterengine.Cluster, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(clusterengine.Cluster), args.Error(1)
}

func (m *MockManager) CreateCluster(
	ctx context.Context,
	name string,
	clusterType clusterengine.ClusterType,
	params map[string]any,
	sshKey string,
	credential clusterengine.Credential,
) (clusterengine.Cluster, error) {
	args := m.Called(ctx, name, clusterType, params, sshKey, credential)
	return args.Get(0).(clusterengine.Cluster), args.Error(1)
}

func (m *MockManager) UpdateCluster(
	ctx context.Context,
	cluster clusterengine.Cluster,
	params map[string]any,
	credential clusterengine.Credential,
) (clusterengine.Cluster, error) {
	args := m.Called(ctx, cluster, params, credential)
	return args.Get(0).(clusterengine.Cluster), args.Error(1)
}

func (m *MockManager) PatchCluster(ctx context.Context, cluster clusterengine.Cluster, credential clusterengine.Credential) (clusterengine.Cluster, error) {
	args := m.Called(ctx, cluster, credential)
	return args.Get(0).(clusterengine.Cluster), args.Error(1)
}

func (m *MockManager) DeleteCluster(ctx context.Context, cluster clusterengine.Cluster, credential clusterengine.Credential) (*clusterengine.Cluster, error) {
	args := m.Called(ctx, cluster, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clusterengine.Cluster), args.Error(1)
}

func (m *MockManager) Close() error {
	return m.Called().Error(0)
}
