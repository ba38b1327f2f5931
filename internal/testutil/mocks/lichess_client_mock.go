package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockLichessClient is a mock implementation of lichess.ClientInterface
type MockLichessClient struct {
	mock.Mock
}

func (m *MockLichessClient) Fetch(ctx context.Context, idOrURL string) (string, error) {
	args := m.Called(ctx, idOrURL)
	return args.String(0), args.Error(1)
}
