package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dict-gateway/go/internal/config"
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
	"github.com/dict-gateway/go/internal/server"
	"github.com/dict-gateway/go/internal/telemetry"
	"github.com/dict-gateway/go/internal/tenant"
)

// databases holds database connections
type databases struct {
	mongo *db.Mongo
	redis *db.Redis
}

// repositories holds all repository instances
type repositories struct {
	dict        *dict.MongoRepository
	leakyBucket *leakybucket.MongoRepository
	tenant      *tenant.MongoRepository
	idempotency *idempotency.Repository
}

func main() {
	config.Load()

	shutdownTelemetry := setupTelemetry()
	defer shutdownTelemetry()

	dbs := setupDatabases()
	defer dbs.mongo.Disconnect()
	defer dbs.redis.Disconnect()

	repos := setupRepositories(dbs.mongo)

	if config.Env.SeedDemoData {
		seedDemoData(repos)
	}

	handler := setupApp(repos, dbs.redis)

	srv := server.New(handler, config.Env.Port)
	srv.ListenAndServeWithGracefulShutdown()
}

// setupTelemetry initializes OpenTelemetry tracing and log export, then the
// logger on top of them. Returns a cleanup function that should be deferred.
func setupTelemetry() func() {
	shutdownTracing, err := telemetry.InitTracer(config.Env.OTELExporterEndpoint)
	if err != nil {
		panic("failed to initialize tracer: " + err.Error())
	}

	shutdownLogs, err := telemetry.InitLoggerProvider(config.Env.OTELExporterEndpoint)
	if err != nil {
		panic("failed to initialize log provider: " + err.Error())
	}

	if err := logger.Init(config.Env.Environment, telemetry.LoggerProvider); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	return func() {
		ctx := context.Background()
		shutdownTracing(ctx)
		shutdownLogs(ctx)
		logger.Sync()
	}
}

// setupDatabases establishes connections to MongoDB and Redis.
// Fatals on connection failure.
func setupDatabases() *databases {
	mongoDB, err := db.ConnectMongo(config.Env.MongoDBURI, "dict_gateway")
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	redisDB, err := db.ConnectRedis(config.Env.RedisURI)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	return &databases{
		mongo: mongoDB,
		redis: redisDB,
	}
}

// setupRepositories creates all repository instances and ensures database indexes.
// Fatals on index creation failure.
func setupRepositories(mongoDB *db.Mongo) *repositories {
	dictRepo := dict.NewMongoRepository(mongoDB)
	leakyBucketRepo := leakybucket.NewMongoRepository(mongoDB)
	tenantRepo := tenant.NewMongoRepository(mongoDB)
	idempotencyRepo := idempotency.NewRepository(mongoDB)

	ctx := context.Background()

	if err := dictRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure DICT indexes", zap.Error(err))
	}
	if err := leakyBucketRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure leaky bucket indexes", zap.Error(err))
	}
	if err := tenantRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure tenant indexes", zap.Error(err))
	}
	if err := idempotencyRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure idempotency indexes", zap.Error(err))
	}

	return &repositories{
		dict:        dictRepo,
		leakyBucket: leakyBucketRepo,
		tenant:      tenantRepo,
		idempotency: idempotencyRepo,
	}
}

// seedDemoData provisions the demo tenants, their PIX query buckets, and
// reference Pix keys so a fresh deployment is exercisable immediately.
func seedDemoData(repos *repositories) {
	ctx := context.Background()

	if err := tenant.SeedDemoTenants(ctx, repos.tenant); err != nil {
		logger.Fatal("Failed to seed demo tenants", zap.Error(err))
	}

	now := time.Now()
	for _, seed := range tenant.DemoTenants() {
		err := repos.leakyBucket.ProvisionBucket(ctx, leakybucket.BucketSnapshot{
			TenantID:        seed.Tenant.ID,
			AvailableTokens: config.Env.PixBucketMaxTokens,
			MaxTokens:       config.Env.PixBucketMaxTokens,
			LastRefillAt:    now,
		})
		if err != nil {
			logger.Fatal("Failed to provision PIX query bucket", zap.Error(err))
		}
	}

	demoKeys := []leakybucket.PixKey{
		{Key: "alice@example.com", OwnerName: "Alice Souza", BankName: "Alpha Bank", Status: leakybucket.KeyActive},
		{Key: "+5511999990000", OwnerName: "Bruno Lima", BankName: "Omega Credit Union", Status: leakybucket.KeyActive},
		{Key: "carol@example.com", OwnerName: "Carol Dias", BankName: "Alpha Bank", Status: leakybucket.KeyInactive},
	}
	for _, key := range demoKeys {
		if err := repos.leakyBucket.UpsertPixKey(ctx, key); err != nil {
			logger.Fatal("Failed to seed Pix key", zap.Error(err))
		}
	}

	logger.Info("Demo data seeded",
		zap.Int("tenants", len(tenant.DemoTenants())),
		zap.Int("pixKeys", len(demoKeys)),
	)
}

// setupApp initializes services, handlers, middleware, and the HTTP router.
// Returns the fully configured HTTP handler ready to serve requests.
func setupApp(repos *repositories, redisDB *db.Redis) http.Handler {
	throttle := middleware.NewThrottle(redisDB.Client, config.Env.ThrottleBucketSize, config.Env.ThrottleRefillSecs)
	mwManager := middleware.NewManager(repos.idempotency, throttle, config.Env.ThrottleEnabled)

	rateLimitService := dict.NewRateLimitService(repos.dict, logger.Log, nil)
	pixQueryService := leakybucket.NewService(repos.leakyBucket, pix.NewService(), logger.Log, nil)

	authHandler := auth.NewHandler(repos.tenant, config.Env.JWTSecret)
	dictHandler := dictapi.NewHandler(rateLimitService)
	pixHandler := pixapi.NewHandler(pixQueryService)

	return router.Setup(config.Env.JWTSecret, authHandler, dictHandler, pixHandler, mwManager)
}
