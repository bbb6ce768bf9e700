// Command e2e smoke-tests a running live-data server and dashboard pair.
//
//	LIVESERVER_URL=http://localhost:8080 DASHBOARD_URL=http://localhost:8081 go run ./test/e2e
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marisusis/eclipse.marisusis.me/internal/api/dto"
)

// Test configuration
const (
	MaxWaitDuration = 60 * time.Second
	PollInterval    = 2 * time.Second
	RequestTimeout  = 5 * time.Second
)

var (
	liveServerURL = envOr("LIVESERVER_URL", "http://localhost:8080")
	dashboardURL  = envOr("DASHBOARD_URL", "http://localhost:8081")
	httpClient    = &http.Client{Timeout: RequestTimeout}
)

// TestResult tracks the result of each test
type TestResult struct {
	Name     string
	Passed   bool
	Error    error
	Duration time.Duration
}

func main() {
	fmt.Println("=== Eclipse Dashboard E2E System Test ===")
	fmt.Println()

	ctx := context.Background()
	results := []TestResult{}

	// Test 1: Health checks
	results = append(results, runTest("Live-Data Server Health Check", func() error {
		return testHealthCheck(ctx, liveServerURL)
	}))
	results = append(results, runTest("Dashboard Health Check", func() error {
		return testHealthCheck(ctx, dashboardURL)
	}))

	// Test 2: Aggregate feed
	results = append(results, runTest("Aggregate Feed Sorted By Node", func() error {
		return testAggregate(ctx)
	}))

	// Test 3: Wait for panels
	var panels *dto.PanelListResponse
	results = append(results, runTest("Wait for Dashboard Panels", func() error {
		var err error
		panels, err = waitForPanels(ctx)
		return err
	}))

	if panels != nil && len(panels.Panels) > 0 {
		first := panels.Panels[0]

		// Test 4: Render a panel
		results = append(results, runTest("Render Panel Graph", func() error {
			return testGraph(ctx, first.NodeID)
		}))

		// Test 5: Zoom a panel
		results = append(results, runTest("Zoom Panel", func() error {
			return testWheel(ctx, first.NodeID, first.WindowSeconds)
		}))
	}

	// Test 6: Update stream
	results = append(results, runTest("Update Stream Sends Panels", func() error {
		return testStream(ctx)
	}))

	// Test 7: Metrics
	results = append(results, runTest("Dashboard Metrics Exposed", func() error {
		return testMetrics(ctx)
	}))

	// Print results
	fmt.Println()
	fmt.Println("=== Test Results ===")
	fmt.Println()
	passed := 0
	failed := 0
	for _, result := range results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("%s %s (%.2fs)\n", status, result.Name, result.Duration.Seconds())
		if result.Error != nil {
			fmt.Printf("   Error: %v\n", result.Error)
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func runTest(name string, testFunc func() error) TestResult {
	fmt.Printf("Running: %s...\n", name)
	start := time.Now()
	err := testFunc()
	duration := time.Since(start)

	result := TestResult{
		Name:     name,
		Passed:   err == nil,
		Error:    err,
		Duration: duration,
	}

	if err != nil {
		fmt.Printf("  Failed: %v\n", err)
	} else {
		fmt.Printf("  Passed\n")
	}

	return result
}

func testHealthCheck(ctx context.Context, baseURL string) error {
	body, err := get(ctx, baseURL+"/health")
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	fmt.Printf("  Health response: %s\n", strings.TrimSpace(string(body)))
	return nil
}

func testAggregate(ctx context.Context) error {
	var resp dto.AggregateResponse
	if err := getJSON(ctx, liveServerURL+"/api/data/all", &resp); err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("expected at least one node, got zero")
	}

	for i, entry := range resp.Data {
		if i > 0 && resp.Data[i-1].NodeID > entry.NodeID {
			return fmt.Errorf("entries not sorted: %s before %s", resp.Data[i-1].NodeID, entry.NodeID)
		}
		if entry.Data != nil && !entry.Status.Reachable() {
			return fmt.Errorf("node %s is %s but carries data", entry.NodeID, entry.Status)
		}
		fmt.Printf("    - %s (%s, location: %s)\n", entry.NodeID, entry.Status, entry.Location)
	}
	return nil
}

func waitForPanels(ctx context.Context) (*dto.PanelListResponse, error) {
	fmt.Printf("  Waiting for panels (max %v)...\n", MaxWaitDuration)

	deadline := time.Now().Add(MaxWaitDuration)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		var resp dto.PanelListResponse
		err := getJSON(ctx, dashboardURL+"/api/panels", &resp)
		if err == nil && resp.Total > 0 && resp.Version > 0 {
			fmt.Printf("  Found %d panels at version %d\n", resp.Total, resp.Version)
			for _, p := range resp.Panels {
				fmt.Printf("    - %s [%s] %s\n", p.NodeID, p.Status, p.Location)
			}
			return &resp, nil
		}

		fmt.Printf("  Waiting... (no panels yet)\n")
		<-ticker.C
	}

	return nil, fmt.Errorf("timeout: no panels after %v", MaxWaitDuration)
}

func testGraph(ctx context.Context, nodeID string) error {
	body, err := get(ctx, fmt.Sprintf("%s/api/panels/%s/graph.png?width=300&height=150", dashboardURL, nodeID))
	if err != nil {
		return err
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graph is not a PNG: %w", err)
	}
	if cfg.Width < 300 || cfg.Height < 150 {
		return fmt.Errorf("graph is %dx%d, smaller than the requested CSS size", cfg.Width, cfg.Height)
	}

	fmt.Printf("  Rendered %s at %dx%d backing pixels\n", nodeID, cfg.Width, cfg.Height)
	return nil
}

func testWheel(ctx context.Context, nodeID string, before float64) error {
	payload := strings.NewReader(`{"delta_y": -50}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/panels/%s/wheel", dashboardURL, nodeID), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	var wheel dto.WheelResponse
	if err := json.NewDecoder(resp.Body).Decode(&wheel); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if wheel.Changed && wheel.WindowSeconds >= before {
		return fmt.Errorf("zoom in widened the window: %v -> %v", before, wheel.WindowSeconds)
	}

	fmt.Printf("  Window %.3fs -> %.3fs\n", before, wheel.WindowSeconds)
	return nil
}

func testStream(ctx context.Context) error {
	url := "ws" + strings.TrimPrefix(dashboardURL, "http") + "/api/panels/stream"

	dialCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(RequestTimeout))
	var msg dto.StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("no initial message: %w", err)
	}
	if msg.Panels == nil {
		return fmt.Errorf("initial message carries no panels")
	}

	fmt.Printf("  Stream at version %d with %d panels\n", msg.Version, msg.Panels.Total)
	return nil
}

func testMetrics(ctx context.Context) error {
	body, err := get(ctx, dashboardURL+"/metrics")
	if err != nil {
		return err
	}
	if !bytes.Contains(body, []byte("eclipse_polls_total")) {
		return fmt.Errorf("eclipse_polls_total not exported")
	}
	return nil
}

// Helper functions

func get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expected status 200, got %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func getJSON(ctx context.Context, url string, out any) error {
	body, err := get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
