package mocks

import (
	"context"

	"doccustody/internal/classifier"

	"github.com/stretchr/testify/mock"
)

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, payload []byte, mimeType, expectedType string) (classifier.Verdict, error) {
	args := m.Called(ctx, payload, mimeType, expectedType)
	return args.Get(0).(classifier.Verdict), args.Error(1)
}
