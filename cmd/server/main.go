package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/yatube/config"
	"github.com/d60-Lab/yatube/internal/api/handler"
	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/cache"
	"github.com/d60-Lab/yatube/internal/media"
	"github.com/d60-Lab/yatube/internal/repository"
	"github.com/d60-Lab/yatube/internal/router"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/internal/web"
	"github.com/d60-Lab/yatube/pkg/database"
	"github.com/d60-Lab/yatube/pkg/logger"
	"github.com/d60-Lab/yatube/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		panic(err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Server.Mode)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Fatal("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close(db)

	store, closeStore := newPageCache(ctx, cfg)
	defer closeStore()

	storage, err := media.NewStorage(ctx, cfg.Media)
	if err != nil {
		logger.Fatal("media storage init failed", zap.Error(err))
	}
	thumbnailer := media.NewThumbnailer(storage, cfg.Media.ThumbnailQueueSize)
	stopThumbnails := thumbnailer.Start(cfg.Media.ThumbnailWorkers)
	uploader := media.NewUploader(storage, thumbnailer, cfg.Media.MaxUploadBytes, cfg.Media.MaxPixels)

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	follows := repository.NewFollowRepository(db)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	h := handler.NewHandler(handler.Options{
		Feeds:         service.NewFeedService(posts, groups, users, cfg.Feed.PageSize),
		Posts:         service.NewPostService(posts, comments, groups, uploader),
		Relations:     service.NewRelationshipService(follows, users),
		Auth:          service.NewAuthService(users, 0),
		Tokens:        tokens,
		CookieName:    cfg.JWT.CookieName,
		SecureCookies: cfg.Server.Mode == gin.ReleaseMode,
		MaxUpload:     cfg.Media.MaxUploadBytes,
		PageSize:      cfg.Feed.PageSize,
	})

	tmpl, err := web.Templates(uploader)
	if err != nil {
		logger.Fatal("parse templates failed", zap.Error(err))
	}
	deps := router.Deps{Config: cfg, Handler: h, Tokens: tokens, Users: users, PageCache: store, Templates: tmpl}
	if local, ok := storage.(*media.LocalStorage); ok {
		deps.MediaDir = local.Dir()
	}
	r := router.Setup(deps)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopThumbnails(shutdownCtx); err != nil {
		logger.Warn("thumbnail queue not drained", zap.Int("pending", thumbnailer.QueueLen()), zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// newPageCache 按配置选择内存或 redis 缓存
func newPageCache(ctx context.Context, cfg *config.Config) (cache.Store, func()) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryStore(cfg.Cache.Size, cfg.Cache.IndexTTL), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return cache.NewRedisStore(client, cfg.Cache.KeyPrefix), func() { _ = client.Close() }
}
