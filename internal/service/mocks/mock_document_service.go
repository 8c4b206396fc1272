package mocks

import (
	"context"
	"time"

	"doccustody/internal/anchor"
	"doccustody/internal/model"
	"doccustody/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, cmd service.UploadCommand) (*service.UploadResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, limit, offset int, documentType string) (*service.DocumentListResult, error) {
	args := m.Called(ctx, limit, offset, documentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) ListByOwner(ctx context.Context, owner string, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, owner, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, id string) (*model.Document, []byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Document), args.Get(1).([]byte), args.Error(2)
}

func (m *MockDocumentService) PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) VerifyIntegrity(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentService) InspectIntegrity(ctx context.Context, id string) (*service.IntegrityReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IntegrityReport), args.Error(1)
}

func (m *MockDocumentService) AnchorInfo(ctx context.Context) anchor.Info {
	args := m.Called(ctx)
	return args.Get(0).(anchor.Info)
}

var _ service.DocumentService = (*MockDocumentService)(nil)
