package main

import (
	"bizcard/config"
	"bizcard/controllers"
	"bizcard/database"
	"bizcard/middleware"
	"bizcard/services"
	"bizcard/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// dependencies все, что нужно для сборки HTTP роутера
type dependencies struct {
	db      *gorm.DB
	cfg     *config.Config
	log     *utils.Logger
	metrics *utils.Metrics
	limiter utils.Limiter
	email   *services.EmailService
}

// setupRouter собирает API роутер
func setupRouter(deps dependencies) *gin.Engine {
	userService := services.NewUserService(deps.db)
	cardService := services.NewCardService(deps.db, deps.cfg, deps.log, deps.metrics)
	sitemapService := services.NewSitemapService(deps.db, deps.cfg.App.PublicBaseURL)

	authController := controllers.NewAuthController(
		userService,
		deps.email,
		[]byte(deps.cfg.JWT.SecretKey),
		time.Duration(deps.cfg.JWT.ExpiresIn)*time.Hour,
		deps.log,
	)
	cardController := controllers.NewCardController(cardService, sitemapService, deps.cfg.App.DefaultLocale, deps.log, deps.metrics)
	adminController := controllers.NewAdminController(userService, deps.log)
	auth := middleware.NewAuth([]byte(deps.cfg.JWT.SecretKey), userService, deps.log)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.log, deps.metrics),
		middleware.Logger(deps.log, deps.metrics),
		middleware.CORS(deps.cfg.Server.AllowOrigins),
	)
	rateLimit := middleware.RateLimit(deps.limiter, deps.log)

	// Публичные маршруты для аутентификации
	authRoutes := router.Group("/api/auth", rateLimit)
	authRoutes.POST("/signUp", authController.SignUp)
	authRoutes.POST("/signIn", authController.SignIn)

	// Публичный каталог
	public := router.Group("/api/public", rateLimit, auth.Optional())
	public.GET("/cards", cardController.ListPublic)
	public.GET("/cards/:id", cardController.GetPublic)
	router.GET("/sitemap.xml", rateLimit, cardController.Sitemap)

	// Защищенные маршруты
	protected := router.Group("/api", auth.Required())
	protected.GET("/cards", cardController.List)
	protected.POST("/cards", cardController.Create)
	protected.GET("/cards/:id", cardController.Get)
	protected.PUT("/cards/:id", cardController.Update)
	protected.DELETE("/cards/:id", cardController.Delete)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.PUT("/users/:id/plan", adminController.SetPlan)

	return router
}

// newLimiter выбирает общий лимитер в Redis, если он настроен, иначе лимитер в памяти процесса
func newLimiter(ctx context.Context, cfg *config.Config, logger *utils.Logger) (utils.Limiter, func()) {
	if cfg.Redis.Addr == "" {
		return utils.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	limiter, err := utils.NewRedisRateLimiter(ctx, client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory rate limiter", "addr", cfg.Redis.Addr, "error", err)
		_ = client.Close()
		return utils.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {}
	}
	return limiter, func() { _ = client.Close() }
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", "error", err)
	}
	defer db.Close()

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	metrics := utils.GetMetrics()
	router := setupRouter(dependencies{
		db:      db.GetDB(),
		cfg:     cfg,
		log:     logger,
		metrics: metrics,
		limiter: limiter,
		email:   services.NewEmailService(cfg, logger),
	})

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.OpsPort),
		Handler:           controllers.NewOpsController(db, metrics, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 2)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		go func(srv *http.Server) {
			logger.Info("server started", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{apiServer, opsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
	logger.Info("server stopped")
}
