package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "backoffice/api/swagger" // swagger docs
	"backoffice/internal/authz"
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/handler"
	"backoffice/internal/logger"
	"backoffice/internal/metrics"
	"backoffice/internal/middleware"
	"backoffice/internal/repository"
	"backoffice/internal/security"
	"backoffice/internal/service"
	"backoffice/internal/session"
	"backoffice/internal/validation"
	"backoffice/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Back-office API
// @version         1.0
// @description     Users, roles, permissions and organization management with role-based access control.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("Logger setup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := validation.RegisterGin(); err != nil {
		return err
	}

	db, err := database.NewConnection(cfg.DSN(), log)
	if err != nil {
		return err
	}
	log.Info("Connected to PostgreSQL successfully.")

	var denylist *session.Denylist
	if cfg.RedisAddr != "" {
		client, err := session.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		denylist = session.NewDenylist(client)
		log.WithField("addr", cfg.RedisAddr).Info("Token revocation enabled")
	} else {
		log.Warn("REDIS_ADDR not set, logout will not revoke tokens")
	}

	codec, err := security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	m := metrics.New()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	if cfg.SeedOnStart {
		seeder := service.NewSeeder(permRepo, roleRepo, deptRepo, positionRepo, userRepo, txManager, hasher, log)
		admin := service.AdminAccount{Username: cfg.SeedAdminUsername, Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPassword}
		if err := seeder.Seed(ctx, admin); err != nil {
			return err
		}
		log.Info("Seed data ensured")
	}

	resolver := authz.NewResolver(permRepo, roleRepo)
	gate := middleware.NewGate(codec, userRepo, denylist, resolver, m, log)

	wsHub := websocket.NewHub(gate, cfg.CORSAllowedOrigins, log)
	go wsHub.Run(ctx)

	authService := service.NewAuthService(userRepo, hasher, codec, resolver, denylist, m, log)
	userService := service.NewUserService(userRepo, roleRepo, deptRepo, positionRepo, auditRepo, txManager, hasher, wsHub)
	roleService := service.NewRoleService(roleRepo, permRepo, userRepo, auditRepo, txManager, wsHub)
	permissionService := service.NewPermissionService(permRepo, auditRepo, txManager)
	departmentService := service.NewDepartmentService(deptRepo, positionRepo, userRepo, auditRepo, txManager)
	positionService := service.NewPositionService(positionRepo, deptRepo, userRepo, auditRepo, txManager)
	profileService := service.NewProfileService(userRepo, auditRepo, txManager, hasher)
	auditService := service.NewAuditService(auditRepo)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), m.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", m.Handler())
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", wsHub.Serve(ctx))

	api := router.Group("/api")
	handler.NewAuthHandler(authService, cfg.IsProduction()).RegisterRoutes(api, gate)
	handler.NewUserHandler(userService).RegisterRoutes(api, gate)
	handler.NewRoleHandler(roleService).RegisterRoutes(api, gate)
	handler.NewPermissionHandler(permissionService).RegisterRoutes(api, gate)
	handler.NewDepartmentHandler(departmentService).RegisterRoutes(api, gate)
	handler.NewPositionHandler(positionService).RegisterRoutes(api, gate)
	handler.NewProfileHandler(profileService).RegisterRoutes(api, gate)
	handler.NewAuditHandler(auditService).RegisterRoutes(api, gate)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
