package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marisusis/eclipse.marisusis.me/internal/api/dto"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/middleware"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage/inmemory"
)

func testNodes() []domain.NodeConfig {
	return []domain.NodeConfig{
		{NodeID: "ET1002", DataEndpoint: "http://node-2/data", Location: "Lab"},
		{NodeID: "et1001", DataEndpoint: "http://node-1/data"},
	}
}

func onlineReading(id string) *domain.NodeReading {
	ts := int64(1700000000000)
	return &domain.NodeReading{
		NodeID: id,
		Sample: &domain.WaveformSample{
			SampleRate: 1000,
			Samples:    []float64{0, 0.5, -0.5, 0},
			Flags:      domain.WaveformFlags{HasGPSFix: true},
			Timestamp:  &ts,
		},
		Status:    domain.NodeStatusOnline,
		UpdatedAt: time.Now().UTC(),
	}
}

func TestDataHandler_GetAll_SortedWithOfflineFill(t *testing.T) {
	cache := inmemory.NewSampleCache()
	require.NoError(t, cache.Store(context.Background(), onlineReading("ET1002")))

	handler := NewDataHandler(cache, testNodes())
	router, w := setupGinTest()
	router.GET("/api/data/all", handler.GetAll)

	req := httptest.NewRequest(http.MethodGet, "/api/data/all", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.AggregateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 2)

	assert.Equal(t, "ET1001", response.Data[0].NodeID)
	assert.Equal(t, domain.NodeStatusOffline, response.Data[0].Status)
	assert.Equal(t, domain.DefaultLocation, response.Data[0].Location)
	assert.Nil(t, response.Data[0].Data)

	assert.Equal(t, "ET1002", response.Data[1].NodeID)
	assert.Equal(t, domain.NodeStatusOnline, response.Data[1].Status)
	assert.Equal(t, "Lab", response.Data[1].Location)
	assert.Equal(t, int64(1700000000000), response.Data[1].LastUpdate)
	require.NotNil(t, response.Data[1].Data)
	assert.Equal(t, []float64{0, 0.5, -0.5, 0}, response.Data[1].Data.Samples)
}

func TestDataHandler_GetAll_TimeoutHasNoData(t *testing.T) {
	cache := inmemory.NewSampleCache()
	reading := onlineReading("ET1002")
	reading.Status = domain.NodeStatusTimeout
	require.NoError(t, cache.Store(context.Background(), reading))

	handler := NewDataHandler(cache, testNodes()[:1])
	router, w := setupGinTest()
	router.GET("/api/data/all", handler.GetAll)

	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data/all", nil))

	var response dto.AggregateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, domain.NodeStatusTimeout, response.Data[0].Status)
	assert.Nil(t, response.Data[0].Data)
}

func TestDataHandler_GetAll_NoNodes(t *testing.T) {
	handler := NewDataHandler(&MockSampleCache{}, nil)
	router, w := setupGinTest()
	router.GET("/api/data/all", handler.GetAll)

	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data/all", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "No nodes configured")
}

func TestDataHandler_GetAll_CacheError(t *testing.T) {
	mockCache := &MockSampleCache{
		GetManyFunc: func(ctx context.Context, ids []string) (map[string]*domain.NodeReading, error) {
			return nil, errors.New("redis down")
		},
	}

	handler := NewDataHandler(mockCache, testNodes())
	router, w := setupGinTest()
	router.GET("/api/data/all", handler.GetAll)

	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data/all", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Failed to retrieve readings", response.Error)
}

func TestDataHandler_GetNode(t *testing.T) {
	cache := inmemory.NewSampleCache()
	require.NoError(t, cache.Store(context.Background(), onlineReading("ET1002")))

	timedOut := onlineReading("ET1001")
	timedOut.Status = domain.NodeStatusTimeout
	timedOut.Sample = nil
	require.NoError(t, cache.Store(context.Background(), timedOut))

	handler := NewDataHandler(cache, testNodes())

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "online node", path: "/api/data/ET1002", wantStatus: http.StatusOK},
		{name: "case-insensitive id", path: "/api/data/et1002", wantStatus: http.StatusOK},
		{name: "timed out node", path: "/api/data/ET1001", wantStatus: http.StatusServiceUnavailable},
		{name: "unknown node", path: "/api/data/ET9999", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, w := setupGinTest()
			router.GET("/api/data/:node", handler.GetNode)

			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var sample domain.WaveformSample
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sample))
				assert.Equal(t, 1000.0, sample.SampleRate)
				assert.True(t, sample.Flags.HasGPSFix)
			}
		})
	}
}

func TestDataHandler_GetNode_NeverPolled(t *testing.T) {
	handler := NewDataHandler(&MockSampleCache{}, testNodes())
	router, w := setupGinTest()
	router.GET("/api/data/:node", handler.GetNode)

	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data/ET1001", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "offline")
}

func TestDataHandler_GetNode_CacheError(t *testing.T) {
	mockCache := &MockSampleCache{
		GetFunc: func(ctx context.Context, id string) (*domain.NodeReading, error) {
			return nil, errors.New("redis down")
		},
	}

	handler := NewDataHandler(mockCache, testNodes())
	router, w := setupGinTest()
	router.GET("/api/data/:node", handler.GetNode)

	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data/ET1002", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDataHandler_ErrorCarriesRequestID(t *testing.T) {
	handler := NewDataHandler(inmemory.NewSampleCache(), testNodes())
	router, w := setupGinTest()
	router.Use(middleware.RequestIDMiddleware())
	router.GET("/api/data/:node", handler.GetNode)

	req := httptest.NewRequest(http.MethodGet, "/api/data/et9999", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Node not found", response.Error)
	assert.Equal(t, "req-42", response.RequestID)
}
