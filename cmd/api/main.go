package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pomi/api/swagger" // swagger docs
	"pomi/internal/access"
	"pomi/internal/config"
	"pomi/internal/database"
	"pomi/internal/handler"
	"pomi/internal/logger"
	"pomi/internal/middleware"
	"pomi/internal/repository"
	"pomi/internal/schema"
	"pomi/internal/service"
	"pomi/internal/session"
	"pomi/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           POMI API
// @version         1.0
// @description     Reference data, lots and access administration for the Culture Pom produce back office.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	gin.SetMode(cfg.GinMode)

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dbErr := database.NewConnection(ctx, cfg.DSN(), log)
	if db == nil {
		log.Fatal("database configuration rejected", zap.Error(dbErr))
	}

	sessions := newSessionStore(ctx, cfg, log)

	registry := schema.Default()
	gate := access.NewGate(access.DefaultPageGroups())

	wsHub := websocket.NewHub(cfg.CORSOrigins, log)
	go wsHub.Run()

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	stockRepo := repository.NewStockRepository(db)

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	accessService := service.NewAccessService(permRepo, roleRepo, gate, log)
	roleService := service.NewRoleService(roleRepo, auditRepo, txManager, accessService, log)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, txManager, accessService, sessions, tokens, log)
	recordService := service.NewRecordService(registry, gate, recordRepo, auditRepo, txManager, sessions, wsHub, log)
	auditService := service.NewAuditService(auditRepo)
	stockService := service.NewStockService(stockRepo, log)

	bootstrap := func(ctx context.Context) error {
		if cfg.Seed {
			if err := roleService.SeedDefaults(ctx); err != nil {
				return fmt.Errorf("seed roles: %w", err)
			}
		} else if err := accessService.ReloadPageGroups(ctx); err != nil {
			log.Warn("failed to load page groups, using defaults", zap.Error(err))
		}
		if err := userService.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			return fmt.Errorf("create bootstrap administrator: %w", err)
		}
		return nil
	}

	if dbErr == nil {
		log.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Name))
		if err := bootstrap(ctx); err != nil {
			log.Fatal("startup failed", zap.Error(err))
		}
	} else {
		// Serve degraded: data routes answer 503 and /health reports DOWN
		// until the server comes back.
		log.Error("database unavailable, starting degraded", zap.String("host", cfg.DB.Host), zap.Error(dbErr))
		go func() {
			if err := database.WaitReady(ctx, db, 10*time.Second, log); err != nil {
				return
			}
			database.Migrate(db, log)
			if err := bootstrap(ctx); err != nil {
				log.Error("startup after reconnect failed", zap.Error(err))
			}
		}()
	}

	auth := middleware.NewAuth(userService, gate, registry)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, userService, c)
	})

	api := router.Group("/api")
	handler.NewAuthHandler(userService, tokens, cfg.Release(), log).RegisterRoutes(api, auth.Authenticate())

	protected := api.Group("")
	protected.Use(auth.Authenticate())
	handler.NewRecordHandler(recordService, gate, log).RegisterRoutes(protected, auth)
	handler.NewUserHandler(userService, log).RegisterRoutes(protected, auth)
	handler.NewRoleHandler(roleService, log).RegisterRoutes(protected, auth)
	handler.NewAuditHandler(auditService, log).RegisterRoutes(protected, auth)
	handler.NewStockHandler(stockService, log).RegisterRoutes(protected, auth)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newSessionStore uses redis when configured and reachable, process memory otherwise.
func newSessionStore(ctx context.Context, cfg config.Config, log *zap.Logger) session.Store {
	if cfg.RedisAddr == "" {
		log.Info("session store: memory")
		return session.NewMemory(cfg.SessionTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, falling back to memory sessions", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return session.NewMemory(cfg.SessionTTL)
	}
	log.Info("session store: redis", zap.String("addr", cfg.RedisAddr))
	return session.NewRedis(client, cfg.SessionTTL)
}
