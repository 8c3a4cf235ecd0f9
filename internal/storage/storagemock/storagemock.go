package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/storage"
)

// MockRepository is a testify mock of storage.Repository.
type MockRepository struct {
	mock.Mock
}

var _ storage.Repository = &MockRepository{}

func (m *MockRepository) CreateAction(ctx context.Context, a model.ActionRecord) error {
	ret := m.Called(ctx, a)
	return ret.Error(0)
}

func (m *MockRepository) UpdateAction(ctx context.Context, a model.ActionRecord) error {
	ret := m.Called(ctx, a)
	return ret.Error(0)
}

func (m *MockRepository) GetAction(ctx context.Context, id string) (*model.ActionRecord, error) {
	ret := m.Called(ctx, id)

	var r0 *model.ActionRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ActionRecord)
	}

	return r0, ret.Error(1)
}

func (m *MockRepository) ListActions(ctx context.Context, opts storage.ListActionsOpts) ([]model.ActionRecord, error) {
	ret := m.Called(ctx, opts)

	var r0 []model.ActionRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ActionRecord)
	}

	return r0, ret.Error(1)
}

func (m *MockRepository) GetTheme(ctx context.Context) (model.Theme, error) {
	ret := m.Called(ctx)

	var r0 model.Theme
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(model.Theme)
	}

	return r0, ret.Error(1)
}

func (m *MockRepository) SetTheme(ctx context.Context, t model.Theme) error {
	ret := m.Called(ctx, t)
	return ret.Error(0)
}
