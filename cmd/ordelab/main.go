package main

import (
	"context"
	"database/sql"
	"time"

	basketEvents "github.com/davicafu/ordelab/internal/basket/infra/inbound/events"
	basketCache "github.com/davicafu/ordelab/internal/basket/infra/outbound/cache"
	catalogApp "github.com/davicafu/ordelab/internal/catalog/application"
	catalogDomain "github.com/davicafu/ordelab/internal/catalog/domain"
	catalogSQLite "github.com/davicafu/ordelab/internal/catalog/infra/outbound/db/sqlite"
	config "github.com/davicafu/ordelab/internal/config"
	"github.com/davicafu/ordelab/internal/infra/db/mongodb"
	pgEventLog "github.com/davicafu/ordelab/internal/infra/db/postgres"
	sqliteEventLog "github.com/davicafu/ordelab/internal/infra/db/sqlite"
	orderingApp "github.com/davicafu/ordelab/internal/ordering/application"
	orderingDomain "github.com/davicafu/ordelab/internal/ordering/domain"
	orderingEvents "github.com/davicafu/ordelab/internal/ordering/infra/inbound/events"
	orderingHttp "github.com/davicafu/ordelab/internal/ordering/infra/inbound/http"
	"github.com/davicafu/ordelab/internal/ordering/infra/outbound/analytics/clickhouse"
	orderingPg "github.com/davicafu/ordelab/internal/ordering/infra/outbound/db/postgre"
	"github.com/davicafu/ordelab/internal/ordering/infra/outbound/stock"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	infraEvents "github.com/davicafu/ordelab/internal/shared/infra/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/ordelab/internal/shared/infra/platform/cache"
	platformDB "github.com/davicafu/ordelab/internal/shared/infra/platform/db"
	"github.com/davicafu/ordelab/internal/shared/infra/relayer"
	"github.com/davicafu/ordelab/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	clock := func() time.Time { return time.Now().UTC() }

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- DB: pedidos (Postgres) ----------------
	orderingDB, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to open Postgres", zap.Error(err))
	}
	defer orderingDB.Close()

	if err := orderingDB.PingContext(ctx); err != nil {
		log.Fatal("failed to ping Postgres", zap.Error(err))
	}
	if err := orderingPg.InitOrderingSchema(orderingDB); err != nil {
		log.Fatal("failed to initialize ordering schema", zap.Error(err))
	}

	orderingEventLog := pgEventLog.NewEventLogRepoPostgres(orderingDB)
	if err := orderingEventLog.InitSchema(ctx); err != nil {
		log.Fatal("failed to initialize event log schema", zap.Error(err))
	}

	orderRepo := orderingPg.NewOrderRepoPostgres(orderingDB)
	buyerRepo := orderingPg.NewBuyerRepoPostgres(orderingDB)
	orderingUow := platformDB.NewSQLUnitOfWork(orderingDB)

	// ---------------- DB: catálogo (SQLite) ----------------
	catalogDB, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatal("failed to open SQLite", zap.Error(err))
	}
	defer catalogDB.Close()

	if err := catalogSQLite.InitCatalogSchema(catalogDB); err != nil {
		log.Fatal("failed to initialize catalog schema", zap.Error(err))
	}

	catalogEventLog := sqliteEventLog.NewEventLogRepoSQLite(catalogDB)
	if err := catalogEventLog.InitSchema(ctx); err != nil {
		log.Fatal("failed to initialize catalog event log schema", zap.Error(err))
	}

	productRepo := catalogSQLite.NewProductRepoSQLite(catalogDB)
	catalogUow := platformDB.NewSQLUnitOfWork(catalogDB)

	// ---------------- Analítica (ClickHouse) ----------------
	var auditHandler *orderingEvents.StatusAuditHandler
	statusLog, err := clickhouse.NewStatusLogRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
	if err != nil {
		log.Warn("⚠️ ClickHouse no disponible, auditoría de estados desactivada", zap.Error(err))
	} else {
		if err := statusLog.InitSchema(); err != nil {
			log.Fatal("failed to initialize clickhouse schema", zap.Error(err))
		}
		auditHandler = orderingEvents.NewStatusAuditHandler(statusLog, log)
	}

	// ---------------- Dead-letter (MongoDB) ----------------
	var deadLetter infraEvents.DeadLetterSink
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		err = mongoClient.Ping(ctx, nil)
	}
	if err != nil {
		log.Warn("⚠️ MongoDB no disponible, sin dead-letter persistente", zap.Error(err))
	} else {
		deadLetter = mongodb.NewDeadLetterRepoMongoDB(mongoClient, cfg.MongoDB)
		defer mongoClient.Disconnect(ctx)
	}

	// ------------ Registro de eventos ------------
	eventRegistry := make(map[string]sharedEvents.EventMetadata)
	for k, v := range orderingDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	for k, v := range catalogDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}

	// ---------------- Publisher ----------------
	var publisher sharedBus.EventPublisher
	var inMemoryBus *infraEvents.InMemoryEventBus
	var kafkaWriter *kafka.Writer

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")
		kafkaWriter = kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
		})
		defer kafkaWriter.Close()
		publisher = infraEvents.NewKafkaPublisher(kafkaWriter, log)

		if deadLetter == nil {
			// Sin Mongo, los descartes van a topics .dlq.
			deadLetter = infraEvents.NewKafkaDeadLetterSink(kafkaWriter, log)
		}
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")
		inMemoryBus = infraEvents.NewInMemoryEventBus()
		publisher = inMemoryBus
	}

	// ------------ Relayers de outbox ------------
	orderingRelayer := relayer.NewOutboxWorker(orderingEventLog, publisher, eventRegistry, cfg.OutboxPeriod, cfg.OutboxLimit, log)
	orderingRelayer.Start(ctx)

	catalogRelayer := relayer.NewOutboxWorker(catalogEventLog, publisher, eventRegistry, cfg.OutboxPeriod, cfg.OutboxLimit, log)
	catalogRelayer.Start(ctx)

	// --------------- Servicios --------------
	integrationEvents := orderingApp.NewIntegrationEventService(orderingEventLog)
	buyerHandler := orderingApp.NewBuyerValidationHandler(buyerRepo, integrationEvents, clock, log)
	domainDispatcher := orderingApp.NewDomainEventDispatcher(map[string][]orderingApp.DomainHandler{
		orderingDomain.OrderStartedEventName: {buyerHandler},
	}, log)

	orderService := orderingApp.NewOrderService(orderingUow, orderRepo, domainDispatcher, integrationEvents, orderingRelayer, cacheInstance, clock, log)
	catalogService := catalogApp.NewCatalogService(catalogUow, productRepo, catalogEventLog, catalogRelayer, clock, log)

	// ------------ Grace-period worker ------------
	stockConfirmer := stock.NewCatalogStockConfirmer(catalogService, log)
	graceWorker := orderingApp.NewGracePeriodWorker(orderService, orderRepo, stockConfirmer,
		cfg.GracePeriodTime, cfg.GraceCheckPeriod, cfg.GraceBatchSize, clock, log)
	graceWorker.Start(ctx)

	// ------------ Consumidores ------------
	basketStore := basketCache.NewBasketStore(cacheInstance)
	priceHandler := basketEvents.NewPriceUpdateHandler(basketStore, log)
	cleanupHandler := basketEvents.NewCheckoutCleanupHandler(basketStore, log)
	notifierHandler := orderingEvents.NewStatusNotifierHandler(log)

	builder := sharedBus.NewRegistryBuilder()
	for eventType, meta := range orderingDomain.NewEventRegistry() {
		handlers := []sharedBus.Handler{notifierHandler}
		if auditHandler != nil {
			handlers = append(handlers, auditHandler)
		}
		if eventType == orderingDomain.OrderStatusChangedToSubmittedType {
			handlers = append(handlers, cleanupHandler)
		}
		builder.Subscribe(eventType, meta, handlers...)
	}
	builder.Subscribe(catalogDomain.ProductPriceChangedType, eventRegistry[catalogDomain.ProductPriceChangedType], priceHandler)
	registry := builder.Build()

	processedStore := infraEvents.NewCacheProcessedStore(cacheInstance, 24*3600)
	dispatcher := sharedBus.NewDispatcher(registry, processedStore, log)

	if cfg.UseKafka {
		for _, topic := range registry.Topics() {
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.KafkaBrokers,
				Topic:    topic,
				GroupID:  "ordelab-core",
				MinBytes: 10e3, // 10KB
				MaxBytes: 10e6, // 10MB
			})
			defer reader.Close()

			adapter := infraEvents.NewConsumerAdapter(reader, dispatcher, deadLetter, cfg.MaxAttempts, cfg.RetryDelay, log)
			adapter.Start(ctx)
		}
	} else {
		for _, topic := range registry.Topics() {
			log.Info("🎧 Iniciando listener en memoria", zap.String("topic", topic))
			ch := inMemoryBus.Subscribe(topic, 64)
			infraEvents.BackgroundConsumerChan(ctx, ch, dispatcher, log)
		}
	}

	// ---------------- HTTP ----------------
	orderHandler := orderingHttp.NewOrderHandler(orderService)
	router := gin.Default()
	orderingHttp.RegisterOrderRoutes(router, orderHandler)

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
