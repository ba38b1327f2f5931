package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vytor/fairplay/internal/models"
)

// MockAnalysisRepository is a mock implementation of repository.AnalysisRepository
type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Save(ctx context.Context, analysis models.Analysis, cacheKey string) error {
	args := m.Called(ctx, analysis, cacheKey)
	return args.Error(0)
}

func (m *MockAnalysisRepository) Get(ctx context.Context, id string) (*models.Analysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Analysis), args.Error(1)
}

func (m *MockAnalysisRepository) LatestForGame(ctx context.Context, gameID int64) (*models.Analysis, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Analysis), args.Error(1)
}

func (m *MockAnalysisRepository) FindByCacheKey(ctx context.Context, cacheKey string) (*models.Analysis, error) {
	args := m.Called(ctx, cacheKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Analysis), args.Error(1)
}
