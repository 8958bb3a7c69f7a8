package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/pkg/logger"
	"github.com/d60-Lab/yatube/pkg/response"
)

const (
	currentUserKey = "current_user"

	LoginURL = "/auth/login/"
)

// UserLoader is satisfied by repository.UserRepository.
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// Session resolves the request's user from the session cookie or a bearer
// token. Missing or invalid credentials leave the request anonymous.
func Session(tokens *TokenManager, users UserLoader, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerFromHeader(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie(cookieName)
		}
		if raw == "" {
			c.Next()
			return
		}
		id, err := tokens.Parse(raw)
		if err != nil {
			logger.Debug("ignore session token", zap.Error(err))
			c.Next()
			return
		}
		u, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			logger.Debug("session user not found", zap.Uint("user_id", id), zap.Error(err))
			c.Next()
			return
		}
		c.Set(currentUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok && u != nil
}

// SetCurrentUser is used by tests and by login handlers that render in the
// same request.
func SetCurrentUser(c *gin.Context, u *model.User) { c.Set(currentUserKey, u) }

// RequireLogin redirects guests to the login page with ?next= set.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, LoginRedirect(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAPIUser answers 401 for anonymous API calls.
func RequireAPIUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

func LoginRedirect(next string) string {
	return LoginURL + "?next=" + url.QueryEscape(next)
}

// SafeNext keeps only local paths so ?next= cannot redirect off-site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
