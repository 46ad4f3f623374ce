package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patrimonio-service/internal/MinIO"
	"patrimonio-service/internal/config"
	"patrimonio-service/internal/handler/authHandler"
	"patrimonio-service/internal/handler/healthHandler"
	"patrimonio-service/internal/handler/patrimonioHandler"
	"patrimonio-service/internal/repository/BlackListRepo"
	"patrimonio-service/internal/repository/grantCache"
	"patrimonio-service/internal/repository/grantRepo"
	"patrimonio-service/internal/repository/patrimonioRepo"
	"patrimonio-service/internal/repository/profileRepo"
	"patrimonio-service/internal/repository/refreshToken"
	"patrimonio-service/internal/service/accessService"
	"patrimonio-service/internal/service/authService"
	"patrimonio-service/internal/service/patrimonioService"
	"patrimonio-service/pkg/database/postgres"
	"patrimonio-service/pkg/database/redis"
	"patrimonio-service/pkg/logger"
	"patrimonio-service/pkg/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const connectivityProbeInterval = 30 * time.Second

func main() {
	ctx := context.Background()
	ctx, _ = logger.New(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		logger.GetLogger(ctx).Fatal("failed to load config", zap.Error(err))
	}

	if n, err := postgres.Migrate(cfg.Postgres); err != nil {
		logger.GetLogger(ctx).Fatal("failed to apply migrations", zap.Error(err))
	} else if n > 0 {
		logger.GetLogger(ctx).Info("migrations applied", zap.Int("count", n))
	}

	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		logger.GetLogger(ctx).Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.New(cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.GetLogger(ctx).Fatal("cannot connect to Redis", zap.Error(err))
	}

	minioClient, err := MinIO.New(cfg.MinIO)
	if err != nil {
		logger.GetLogger(ctx).Fatal("cannot connect to MinIO", zap.Error(err))
	}

	profiles := profileRepo.New(pool)
	patrimonios := patrimonioRepo.New(pool)
	grants := grantRepo.New(pool)
	tokenRepo := refreshToken.New(redisClient)
	blacklistRepo := BlackListRepo.NewBlackListRepo(redisClient)

	auth := authService.New(profiles, cfg.JWTSecret, tokenRepo, blacklistRepo)
	access := accessService.New(grants, grantCache.New(redisClient, cfg.GrantCacheTTL))
	patSvc := patrimonioService.New(patrimonios, profiles, minioClient, grants, access, cfg.SignedURLTTL)

	authH := authHandler.New(auth)
	patH := patrimonioHandler.New(patSvc)
	checker := healthHandler.NewChecker(pool, redisClient, minioClient.Client, cfg.MinIO.BucketName)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Authenticate(auth))

	r.Get("/healthz", checker.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)
		r.With(middleware.RequireUser).Post("/logout", authH.Logout)
		r.With(middleware.RequireUser).Patch("/users/me", authH.UpdateMe)

		r.Route("/patrimonios", func(r chi.Router) {
			r.Get("/", patH.Search)
			r.Get("/{id}", patH.Get)
			r.With(middleware.RequireUser).Post("/", patH.Create)
			r.With(middleware.RequireUser).Put("/{id}", patH.Update)
			r.With(middleware.RequireUser).Delete("/{id}", patH.Delete)
			r.With(middleware.RequireUser).Get("/{id}/permissions", patH.ListEditors)
			r.With(middleware.RequireUser).Put("/{id}/permissions", patH.SetEditors)
		})

		r.Route("/permissions/wildcard", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/{userID}", patH.GrantWildcard)
			r.Delete("/{userID}", patH.RevokeWildcard)
		})
	})

	go checker.Watch(ctx, connectivityProbeInterval)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// every request carries the process logger on its context
			r.ServeHTTP(w, req.WithContext(logger.Inject(req.Context(), ctx)))
		}),
	}

	go func() {
		logger.GetLogger(ctx).Info("server started", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger(ctx).Error("failed to serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger(ctx).Warn("shutdown did not finish cleanly", zap.Error(err))
	}
	logger.GetLogger(ctx).Info("server stopped")
}
