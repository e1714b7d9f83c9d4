package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/dict-gateway/go/internal/clock"
	"github.com/dict-gateway/go/internal/db"
	"github.com/dict-gateway/go/internal/dict"
	"github.com/dict-gateway/go/internal/idempotency"
	"github.com/dict-gateway/go/internal/leakybucket"
	"github.com/dict-gateway/go/internal/logger"
	"github.com/dict-gateway/go/internal/middleware"
	"github.com/dict-gateway/go/internal/modules/auth"
	"github.com/dict-gateway/go/internal/modules/dictapi"
	"github.com/dict-gateway/go/internal/modules/pixapi"
	"github.com/dict-gateway/go/internal/pix"
	"github.com/dict-gateway/go/internal/router"
	"github.com/dict-gateway/go/internal/tenant"
)

const testJWTSecret = "test-jwt-secret-for-integration-tests"

// Global test infrastructure - shared across all tests via TestMain
var (
	testMongoDB *db.Mongo
	testRedisDB *db.Redis
)

// TestMain sets up shared test infrastructure once for all tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	if err := logger.Init("test", nil); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start MongoDB container: %v\n", err)
		os.Exit(1)
	}
	defer mongoContainer.Terminate(ctx)

	mongoURI, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get MongoDB connection string: %v\n", err)
		os.Exit(1)
	}

	// Start Redis container
	redisContainer, err := tcredis.Run(ctx, "redis:7")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start Redis container: %v\n", err)
		os.Exit(1)
	}
	defer redisContainer.Terminate(ctx)

	redisURI, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get Redis connection string: %v\n", err)
		os.Exit(1)
	}

	// Connect to databases
	testMongoDB, err = db.ConnectMongo(mongoURI, "dict_gateway_test")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to MongoDB: %v\n", err)
		os.Exit(1)
	}
	defer testMongoDB.Disconnect()

	testRedisDB, err = db.ConnectRedis(redisURI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer testRedisDB.Disconnect()

	// Run tests
	code := m.Run()

	os.Exit(code)
}

// serverOptions controls a test server's edge behavior
type serverOptions struct {
	throttleEnabled    bool
	throttleBucketSize int
	clock              clock.Clock
}

// createTestServer wires a full gateway against an isolated database
func createTestServer(t *testing.T, opts serverOptions) *httptest.Server {
	t.Helper()

	// Create isolated database connection
	dbName := "test_gateway_" + uuid.New().String()
	isolatedMongo := testMongoDB.WithDatabase(dbName)

	// Initialize repositories with isolated DB
	dictRepo := dict.NewMongoRepository(isolatedMongo)
	leakyRepo := leakybucket.NewMongoRepository(isolatedMongo)
	tenantRepo := tenant.NewMongoRepository(isolatedMongo)
	idempotencyRepo := idempotency.NewRepository(isolatedMongo)

	ctx := context.Background()
	if err := dictRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to ensure dict indexes: %v", err)
	}
	if err := leakyRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to ensure leaky bucket indexes: %v", err)
	}
	if err := tenantRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to ensure tenant indexes: %v", err)
	}
	if err := idempotencyRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to ensure idempotency indexes: %v", err)
	}

	// Seed demo tenants and their pix quota buckets
	if err := tenant.SeedDemoTenants(ctx, tenantRepo); err != nil {
		t.Fatalf("Failed to seed tenants: %v", err)
	}
	now := time.Now()
	for _, seed := range tenant.DemoTenants() {
		err := leakyRepo.ProvisionBucket(ctx, leakybucket.BucketSnapshot{
			TenantID:        seed.Tenant.ID,
			AvailableTokens: 10,
			MaxTokens:       10,
			LastRefillAt:    now,
		})
		if err != nil {
			t.Fatalf("Failed to provision pix bucket: %v", err)
		}
	}
	seedPixKeys := []leakybucket.PixKey{
		{Key: "alice@example.com", OwnerName: "Alice Souza", BankName: "Alpha Bank", Status: leakybucket.KeyActive},
		{Key: "carol@example.com", OwnerName: "Carol Dias", BankName: "Alpha Bank", Status: leakybucket.KeyInactive},
	}
	for _, key := range seedPixKeys {
		if err := leakyRepo.UpsertPixKey(ctx, key); err != nil {
			t.Fatalf("Failed to seed pix key: %v", err)
		}
	}

	// Edge throttle (shared Redis is fine, keys are isolated by tenant)
	throttle := middleware.NewThrottle(testRedisDB.Client, opts.throttleBucketSize, 60)
	mwManager := middleware.NewManager(idempotencyRepo, throttle, opts.throttleEnabled)

	// Initialize services and handlers
	dictService := dict.NewRateLimitService(dictRepo, logger.Log, opts.clock)
	pixService := leakybucket.NewService(leakyRepo, pix.NewService(), logger.Log, opts.clock)

	authHandler := auth.NewHandler(tenantRepo, testJWTSecret)
	dictHandler := dictapi.NewHandler(dictService)
	pixHandler := pixapi.NewHandler(pixService)

	handler := router.Setup(testJWTSecret, authHandler, dictHandler, pixHandler, mwManager)

	srv := httptest.NewServer(handler)

	// Register cleanup: Close server first, then Drop DB
	// t.Cleanup runs in reverse order of registration
	t.Cleanup(func() {
		if err := isolatedMongo.Database.Drop(context.Background()); err != nil {
			t.Logf("Failed to drop test database %s: %v", dbName, err)
		}
	})
	t.Cleanup(srv.Close)

	return srv
}

// StartThrottledServer starts a server with the Redis edge throttle enabled
func StartThrottledServer(t *testing.T, bucketSize int) *httptest.Server {
	t.Helper()
	return createTestServer(t, serverOptions{
		throttleEnabled:    true,
		throttleBucketSize: bucketSize,
	})
}

// TestClient provides HTTP client methods for a specific test
type TestClient struct {
	t         *testing.T
	authToken string
	baseURL   string
}

// NewTestClient starts an isolated server and logs in as the Alpha Bank
// demo tenant (category A participant)
func NewTestClient(t *testing.T) *TestClient {
	t.Helper()
	server := createTestServer(t, serverOptions{throttleBucketSize: 60})
	return NewTestClientForServer(t, server, "12345678", "alpha-secret")
}

// NewTestClientForServer creates a client logged in as the given tenant
func NewTestClientForServer(t *testing.T, server *httptest.Server, participantCode, secret string) *TestClient {
	t.Helper()

	client := &TestClient{
		t:       t,
		baseURL: server.URL,
	}
	client.authToken = client.login(participantCode, secret)
	return client
}

// login authenticates against /auth/login and returns the JWT
func (c *TestClient) login(participantCode, secret string) string {
	body := map[string]string{
		"participantCode": participantCode,
		"secret":          secret,
	}

	resp := c.PostNoAuth("/auth/login", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("Failed to log in as %s: status %d", participantCode, resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.t.Fatalf("Failed to decode auth response: %v", err)
	}

	return result.Data.Token
}

// Request makes an HTTP request
func (c *TestClient) Request(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		c.t.Fatalf("Failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	// Add auth token
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	// Add custom headers
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		c.t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// PostNoAuth makes a POST request without auth (for login)
func (c *TestClient) PostNoAuth(path string, body any) *http.Response {
	c.t.Helper()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("Failed to marshal request body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		c.t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		c.t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// GET makes a GET request
func (c *TestClient) GET(path string) *http.Response {
	return c.Request(http.MethodGet, path, nil, nil)
}

// POST makes a POST request
func (c *TestClient) POST(path string, body any) *http.Response {
	return c.Request(http.MethodPost, path, body, nil)
}

// POSTWithHeaders makes a POST request with custom headers
func (c *TestClient) POSTWithHeaders(path string, body any, headers map[string]string) *http.Response {
	return c.Request(http.MethodPost, path, body, headers)
}

// Simulate runs one operation simulation and returns the response
func (c *TestClient) Simulate(body map[string]any) *http.Response {
	c.t.Helper()
	return c.POST("/dict/operations", body)
}

// GetEntryRequest builds a GET_ENTRY simulation body
func GetEntryRequest(payerID, endToEndID string, statusCode int) map[string]any {
	return map[string]any{
		"operation":           "GET_ENTRY",
		"simulatedStatusCode": statusCode,
		"payerId":             payerID,
		"keyType":             "CPF",
		"endToEndId":          endToEndID,
	}
}

// ParseResponse parses a JSON response into the given struct
func ParseResponse[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return result
}

// Envelope mirrors the API response wrapper
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}
