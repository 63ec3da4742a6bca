package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"parking_reservation/internal/api"
	"parking_reservation/internal/api/handler"
	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/cache"
	"parking_reservation/internal/config"
	"parking_reservation/internal/jobs"
	"parking_reservation/internal/repository/postgresql"
	"parking_reservation/internal/service"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()
	log.Println("configuration loaded")

	// 2. Database
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer db.Close()
	if err := postgresql.Migrate(db); err != nil {
		log.Fatalf("could not run migrations: %v", err)
	}
	log.Println("database connected and migrated")

	// 3. Redis cache
	redisCache := cache.NewRedisCache(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCache.Close()
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Printf("warning: redis unreachable, cached reads will fall through: %v", err)
	}

	// 4. AWS SDK config and SQS client
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("could not load AWS SDK config: %v", err)
	}
	sqsClient := sqs.NewFromConfig(awsSDKCfg)

	// 5. Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	spotRepo := postgresql.NewPgParkingSpotRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)
	exportJobRepo := postgresql.NewPgExportJobRepository(db)

	// 6. WebSocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()

	// 7. Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(lotRepo, spotRepo, redisCache, webSocketManager)
	reservationService := service.NewReservationService(reservationRepo, lotRepo, redisCache, webSocketManager)
	exportQueue := jobs.NewSQSQueue(sqsClient, cfg.SQSExportQueueURL)
	exportService := service.NewExportService(exportJobRepo, exportQueue)

	if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
		log.Fatalf("could not seed admin user: %v", err)
	}

	// 8. Auth middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 9. Export consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSExportQueueURL == "" {
		log.Println("warning: SQS_EXPORT_QUEUE_URL not set, export consumer will not run")
	} else {
		worker := jobs.NewWorker(exportJobRepo, reservationRepo, cfg.ExportDir)
		consumer := jobs.NewConsumer(sqsClient, cfg.SQSExportQueueURL, worker)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(consumerCtx)
		}()
	}

	// 10. Report scheduler
	reporter := jobs.NewReporter(userRepo, reservationRepo, lotRepo, cfg.NotificationDir, cfg.ReportDir)
	scheduler := jobs.NewScheduler(reporter)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("could not start report scheduler: %v", err)
	}

	// 11. HTTP server
	router := api.SetupRouter(authService, parkingService, reservationService, exportService, authMiddleware, webSocketManager)
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	cancelConsumer()
	scheduler.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	if cfg.SQSExportQueueURL != "" {
		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()
		select {
		case <-done:
			log.Println("export consumer stopped")
		case <-time.After(5 * time.Second):
			log.Println("export consumer did not stop in time")
		}
	}

	log.Println("server stopped")
}
