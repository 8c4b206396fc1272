package mocks

import (
	"context"

	"doccustody/internal/anchor"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Anchor(ctx context.Context, hash, owner string) (string, error) {
	args := m.Called(ctx, hash, owner)
	return args.String(0), args.Error(1)
}

func (m *MockClient) VerifyAnchor(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) Guarantees() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockClient) Info(ctx context.Context) anchor.Info {
	args := m.Called(ctx)
	return args.Get(0).(anchor.Info)
}
