package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockBlobs struct {
	mock.Mock
}

func (m *MockBlobs) SaveBlob(ctx context.Context, data []byte, contentType string, meta map[string]string) (string, error) {
	args := m.Called(ctx, data, contentType, meta)
	return args.String(0), args.Error(1)
}

func (m *MockBlobs) LoadBlob(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobs) DeleteBlob(ctx context.Context, locator string) error {
	args := m.Called(ctx, locator)
	return args.Error(0)
}

func (m *MockBlobs) PresignBlob(ctx context.Context, locator string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, locator, expiry)
	return args.String(0), args.Error(1)
}
