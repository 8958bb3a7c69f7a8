package router

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/yatube/config"
	_ "github.com/d60-Lab/yatube/docs"
	"github.com/d60-Lab/yatube/internal/api/handler"
	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/cache"
	"github.com/d60-Lab/yatube/internal/metrics"
	"github.com/d60-Lab/yatube/internal/middleware"
)

// Deps 路由所需的全部依赖
type Deps struct {
	Config    *config.Config
	Handler   *handler.Handler
	Tokens    *auth.TokenManager
	Users     auth.UserLoader
	PageCache cache.Store
	Templates *template.Template
	// MediaDir is served under Config.Media.URLPrefix; empty for remote storage.
	MediaDir string
}

func Setup(d Deps) *gin.Engine {
	cfg := d.Config
	h := d.Handler
	handler.RegisterValidators()

	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestID(), middleware.Logger())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/media"})),
		middleware.Metrics(),
	)
	if cfg.RateLimit.RPS > 0 {
		r.Use(middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, "too many requests").Middleware())
	}
	r.Use(auth.Session(d.Tokens, d.Users, cfg.JWT.CookieName))
	r.SetHTMLTemplate(d.Templates)

	loginLimit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.LoginRPS > 0 {
		loginLimit = middleware.NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst, "too many login attempts").Middleware()
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if d.MediaDir != "" {
		r.Static(strings.TrimRight(cfg.Media.URLPrefix, "/"), d.MediaDir)
	}

	// 页面
	r.GET("/", middleware.CachePage(d.PageCache, indexTTL(cfg)), h.Index)
	r.GET("/group/:slug/", h.GroupPosts)
	r.GET("/profile/:username/", h.Profile)
	r.GET("/posts/:id/", h.PostDetail)
	r.GET("/about/author/", h.AboutAuthor)
	r.GET("/about/tech/", h.AboutTech)

	login := r.Group("", auth.RequireLogin())
	{
		login.GET("/create/", h.PostCreateForm)
		login.POST("/create/", h.PostCreate)
		login.GET("/posts/:id/edit/", h.PostEditForm)
		login.POST("/posts/:id/edit/", h.PostEdit)
		login.POST("/posts/:id/delete/", h.PostDelete)
		login.GET("/posts/:id/comment/", h.CommentRedirect)
		login.POST("/posts/:id/comment/", h.AddComment)
		login.GET("/follow/", h.FollowIndex)
		login.GET("/profile/:username/follow/", h.ProfileFollow)
		login.GET("/profile/:username/unfollow/", h.ProfileUnfollow)
	}

	accounts := r.Group("/auth")
	{
		accounts.GET("/signup/", h.SignupForm)
		accounts.POST("/signup/", loginLimit, h.Signup)
		accounts.GET("/login/", h.LoginForm)
		accounts.POST("/login/", loginLimit, h.Login)
		accounts.GET("/logout/", h.Logout)
	}

	api := r.Group("/api/v1")
	{
		api.POST("/auth/token", loginLimit, h.IssueToken)
		api.GET("/posts", h.ListPosts)
		api.GET("/posts/:id", h.GetPost)
		api.GET("/posts/:id/comments", h.ListComments)
		api.GET("/groups/:slug/posts", h.GroupFeed)
		api.GET("/users/:username/posts", h.UserFeed)
		api.GET("/relations/:username/following", h.ListFollowing)
		api.GET("/relations/:username/followers", h.ListFollowers)

		authed := api.Group("", auth.RequireAPIUser())
		authed.POST("/posts", h.CreatePost)
		authed.PUT("/posts/:id", h.UpdatePost)
		authed.DELETE("/posts/:id", h.DeletePost)
		authed.POST("/posts/:id/comments", h.CreateComment)
		authed.GET("/follow", h.FollowFeed)
		authed.POST("/relations/follow", h.Follow)
		authed.POST("/relations/unfollow", h.Unfollow)
	}

	r.NoRoute(h.NotFound)
	return r
}

func indexTTL(cfg *config.Config) time.Duration {
	if cfg.Cache.IndexTTL <= 0 {
		return 20 * time.Second
	}
	return cfg.Cache.IndexTTL
}
