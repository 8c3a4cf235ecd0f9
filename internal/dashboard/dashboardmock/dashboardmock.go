package dashboardmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/model"
)

// MockClient is a testify mock of dashboard.Client.
type MockClient struct {
	mock.Mock
}

var _ dashboard.Client = &MockClient{}

func (m *MockClient) Dispatch(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	ret := m.Called(ctx, req)

	var r0 *model.ActionResult
	if rf, ok := ret.Get(0).(func(context.Context, model.ActionRequest) *model.ActionResult); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ActionResult)
	}

	return r0, ret.Error(1)
}

func (m *MockClient) TaskStatus(ctx context.Context, taskID string) (*model.Task, error) {
	ret := m.Called(ctx, taskID)

	var r0 *model.Task
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Task); ok {
		r0 = rf(ctx, taskID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Task)
	}

	return r0, ret.Error(1)
}

func (m *MockClient) SaveBlacklist(ctx context.Context, machineID string, keywords string) (*model.ActionResult, error) {
	ret := m.Called(ctx, machineID, keywords)

	var r0 *model.ActionResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ActionResult)
	}

	return r0, ret.Error(1)
}

func (m *MockClient) GenerateAgent(ctx context.Context, cfg model.AgentBuildConfig) (*dashboard.AgentBinary, error) {
	ret := m.Called(ctx, cfg)

	var r0 *dashboard.AgentBinary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dashboard.AgentBinary)
	}

	return r0, ret.Error(1)
}

func (m *MockClient) FetchView(ctx context.Context, path string) error {
	ret := m.Called(ctx, path)
	return ret.Error(0)
}
