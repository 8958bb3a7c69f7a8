package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/pkg/paginator"
	"github.com/d60-Lab/yatube/pkg/response"
)

// Options 构造 Handler 所需的依赖
type Options struct {
	Feeds         service.FeedService
	Posts         service.PostService
	Relations     service.RelationshipService
	Auth          service.AuthService
	Tokens        *auth.TokenManager
	CookieName    string
	SecureCookies bool
	MaxUpload     int64
	PageSize      int
}

type Handler struct {
	feedService service.FeedService
	postService service.PostService
	relService  service.RelationshipService
	authService service.AuthService
	tokens      *auth.TokenManager
	cookieName  string
	secure      bool
	maxUpload   int64
	pageSize    int
}

func NewHandler(opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "yatube_session"
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 5 << 20
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &Handler{
		feedService: opts.Feeds,
		postService: opts.Posts,
		relService:  opts.Relations,
		authService: opts.Auth,
		tokens:      opts.Tokens,
		cookieName:  opts.CookieName,
		secure:      opts.SecureCookies,
		maxUpload:   opts.MaxUpload,
		pageSize:    opts.PageSize,
	}
}

var registerOnce sync.Once

// RegisterValidators adds the notblank rule to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", validators.NotBlank)
		}
	})
}

// render 渲染页面，并注入当前用户
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["User"]; !ok {
		if u, ok := auth.CurrentUser(c); ok {
			data["User"] = u
		}
	}
	c.HTML(status, name, data)
}

// NotFound renders core/404.html; also used as the router's NoRoute handler.
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		response.NotFound(c, "not found")
		return
	}
	h.render(c, http.StatusNotFound, "core/404.html", gin.H{"Title": "404", "Path": c.Request.URL.Path})
	c.Abort()
}

func (h *Handler) serverError(c *gin.Context, err error) {
	response.Report(c, err)
	h.render(c, http.StatusInternalServerError, "core/500.html", gin.H{"Title": "500"})
	c.Abort()
}

// apiError maps service errors onto the JSON envelope.
func apiError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrPasswordTooShort):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func pageParam(c *gin.Context) int { return paginator.ParsePage(c.Query("page")) }

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
