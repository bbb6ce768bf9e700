package handlers

import (
	"context"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// MockSampleCache implements storage.SampleCache for testing
type MockSampleCache struct {
	StoreFunc   func(ctx context.Context, reading *domain.NodeReading) error
	GetFunc     func(ctx context.Context, nodeID string) (*domain.NodeReading, error)
	GetManyFunc func(ctx context.Context, nodeIDs []string) (map[string]*domain.NodeReading, error)
}

func (m *MockSampleCache) Store(ctx context.Context, reading *domain.NodeReading) error {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, reading)
	}
	return nil
}

func (m *MockSampleCache) Get(ctx context.Context, nodeID string) (*domain.NodeReading, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, nodeID)
	}
	return nil, domain.ErrNodeNotFound
}

func (m *MockSampleCache) GetMany(ctx context.Context, nodeIDs []string) (map[string]*domain.NodeReading, error) {
	if m.GetManyFunc != nil {
		return m.GetManyFunc(ctx, nodeIDs)
	}
	return map[string]*domain.NodeReading{}, nil
}

func (m *MockSampleCache) Close() error {
	return nil
}

func setupGinTest() (*gin.Engine, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	w := httptest.NewRecorder()
	return router, w
}
