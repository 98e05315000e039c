package testutil

import (
	"context"

	"github.com/haatos/nightly/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) CreateRun(ctx context.Context, r *store.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunStore) ReadRunByTimestamp(
	ctx context.Context,
	timestamp string,
) (*store.Run, error) {
	args := m.Called(ctx, timestamp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), args.Error(1)
}

func (m *MockRunStore) ListRuns(ctx context.Context, limit int64) ([]store.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Run), args.Error(1)
}

func (m *MockRunStore) DeleteRun(ctx context.Context, timestamp string) error {
	args := m.Called(ctx, timestamp)
	return args.Error(0)
}

func (m *MockRunStore) CountRuns(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
