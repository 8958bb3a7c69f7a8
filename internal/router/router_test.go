package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/config"
	"github.com/d60-Lab/yatube/internal/api/handler"
	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/cache"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/repository"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/internal/web"
	"github.com/d60-Lab/yatube/pkg/database"
)

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
	store  *cache.MemoryStore
	tokens *auth.TokenManager
	users  repository.UserRepository
	posts  service.PostService
	cfg    *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	cfg := &config.Config{}
	cfg.JWT.CookieName = "sid"
	cfg.Cache.IndexTTL = 20 * time.Second
	cfg.Media.URLPrefix = "/media/"

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	follows := repository.NewFollowRepository(db)
	comments := repository.NewCommentRepository(db)

	feeds := service.NewFeedService(postRepo, groups, users, 10)
	posts := service.NewPostService(postRepo, comments, groups, nil)
	rels := service.NewRelationshipService(follows, users)
	authSvc := service.NewAuthService(users, bcrypt.MinCost)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	tmpl, err := web.Templates(nil)
	require.NoError(t, err)
	store := cache.NewMemoryStore(64, time.Minute)

	h := handler.NewHandler(handler.Options{
		Feeds:      feeds,
		Posts:      posts,
		Relations:  rels,
		Auth:       authSvc,
		Tokens:     tokens,
		CookieName: cfg.JWT.CookieName,
	})
	engine := Setup(Deps{Config: cfg, Handler: h, Tokens: tokens, Users: users, PageCache: store, Templates: tmpl})
	return &testApp{engine: engine, db: db, store: store, tokens: tokens, users: users, posts: posts, cfg: cfg}
}

func (a *testApp) user(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x"}
	require.NoError(t, a.users.Create(context.Background(), u))
	return u
}

func (a *testApp) post(t *testing.T, author *model.User, text string) *model.Post {
	t.Helper()
	p, err := a.posts.Create(context.Background(), author, service.PostInput{Text: text})
	require.NoError(t, err)
	return p
}

func (a *testApp) do(t *testing.T, req *http.Request, as *model.User) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		tok, err := a.tokens.Issue(as.ID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: a.cfg.JWT.CookieName, Value: tok})
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(t *testing.T, target string, as *model.User) *httptest.ResponseRecorder {
	return a.do(t, httptest.NewRequest(http.MethodGet, target, nil), as)
}

func (a *testApp) postForm(t *testing.T, target string, form url.Values, as *model.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req, as)
}

func (a *testApp) postCount(t *testing.T) int64 {
	n, err := a.posts.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	require.NoError(t, app.db.Create(&model.Group{Title: "Test_group", Slug: "test_slug"}).Error)
	p := app.post(t, author, "Тестовый пост")

	for _, target := range []string{"/", "/group/test_slug/", "/profile/auth/", fmt.Sprintf("/posts/%d/", p.ID), "/about/author/", "/about/tech/", "/auth/login/", "/auth/signup/"} {
		w := app.get(t, target, nil)
		assert.Equal(t, http.StatusOK, w.Code, target)
	}

	w := app.get(t, "/unexisting_page/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Страница не найдена")

	for _, target := range []string{"/group/missing/", "/profile/ghost/", "/posts/999/"} {
		assert.Equal(t, http.StatusNotFound, app.get(t, target, nil).Code, target)
	}
}

func TestGuestsAreRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	p := app.post(t, author, "text")

	for _, target := range []string{"/create/", fmt.Sprintf("/posts/%d/edit/", p.ID), "/follow/", "/profile/auth/follow/"} {
		w := app.get(t, target, nil)
		assert.Equal(t, http.StatusFound, w.Code, target)
		assert.Equal(t, auth.LoginRedirect(target), w.Header().Get("Location"))
	}

	w := app.postForm(t, "/create/", url.Values{"text": {"guest"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.EqualValues(t, 1, app.postCount(t))

	w = app.postForm(t, fmt.Sprintf("/posts/%d/comment/", p.ID), url.Values{"text": {"guest"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	var comments int64
	require.NoError(t, app.db.Model(&model.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
}

func TestCreatePostForm(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	group := &model.Group{Title: "g", Slug: "g"}
	require.NoError(t, app.db.Create(group).Error)

	assert.Equal(t, http.StatusOK, app.get(t, "/create/", author).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "Пост из формы"))
	require.NoError(t, mw.WriteField("group", fmt.Sprint(group.ID)))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/create/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := app.do(t, req, author)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	assert.EqualValues(t, 1, app.postCount(t))

	var p model.Post
	require.NoError(t, app.db.First(&p).Error)
	assert.Equal(t, "Пост из формы", p.Text)
	require.NotNil(t, p.GroupID)
	assert.Equal(t, group.ID, *p.GroupID)

	w = app.postForm(t, "/create/", url.Values{"text": {"   "}}, author)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.EqualValues(t, 1, app.postCount(t))
}

func TestEditByNonAuthorRedirectsWithoutChanges(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	other := app.user(t, "other")
	p := app.post(t, author, "Исходный текст")
	detail := fmt.Sprintf("/posts/%d/", p.ID)

	w := app.get(t, detail+"edit/", other)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	w = app.postForm(t, detail+"edit/", url.Values{"text": {"Чужая правка"}}, other)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	w = app.postForm(t, detail+"delete/", nil, other)
	assert.Equal(t, http.StatusFound, w.Code)

	got, err := app.posts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Исходный текст", got.Text)

	w = app.postForm(t, detail+"edit/", url.Values{"text": {"Правка автора"}}, author)
	assert.Equal(t, http.StatusFound, w.Code)
	got, err = app.posts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Правка автора", got.Text)
}

func TestCommentByAuthenticatedUser(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	reader := app.user(t, "reader")
	p := app.post(t, author, "text")
	detail := fmt.Sprintf("/posts/%d/", p.ID)

	w := app.postForm(t, detail+"comment/", url.Values{"text": {"Тестовый комментарий"}}, reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	w = app.get(t, detail, nil)
	assert.Contains(t, w.Body.String(), "Тестовый комментарий")

	w = app.postForm(t, detail+"comment/", url.Values{"text": {" "}}, reader)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.get(t, detail+"comment/", reader)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestFollowPages(t *testing.T) {
	app := newTestApp(t)
	reader := app.user(t, "reader")
	author := app.user(t, "auth")
	app.post(t, author, "Пост автора")

	w := app.get(t, "/follow/", reader)
	assert.NotContains(t, w.Body.String(), "Пост автора")

	w = app.get(t, "/profile/auth/follow/", reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	app.get(t, "/profile/auth/follow/", reader)

	var n int64
	require.NoError(t, app.db.Model(&model.Follow{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	w = app.get(t, "/follow/", reader)
	assert.Contains(t, w.Body.String(), "Пост автора")
	w = app.get(t, "/follow/", author)
	assert.NotContains(t, w.Body.String(), "Пост автора")

	w = app.get(t, "/profile/auth/", reader)
	assert.Contains(t, w.Body.String(), "/profile/auth/unfollow/")

	app.get(t, "/profile/reader/follow/", reader)
	app.get(t, "/profile/auth/unfollow/", reader)
	require.NoError(t, app.db.Model(&model.Follow{}).Count(&n).Error)
	assert.Zero(t, n)

	assert.Equal(t, http.StatusNotFound, app.get(t, "/profile/ghost/follow/", reader).Code)
}

func TestIndexIsCachedUntilCleared(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	p := app.post(t, author, "Кэшируемый пост")

	first := app.get(t, "/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Кэшируемый пост")

	require.NoError(t, app.posts.Delete(context.Background(), author, p.ID))

	second := app.get(t, "/", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	require.NoError(t, app.store.Clear(context.Background()))
	third := app.get(t, "/", nil)
	assert.NotEqual(t, first.Body.Bytes(), third.Body.Bytes())
	assert.NotContains(t, third.Body.String(), "Кэшируемый пост")
}

func TestIndexIsSharedAcrossViewers(t *testing.T) {
	app := newTestApp(t)
	reader := app.user(t, "reader")
	app.post(t, app.user(t, "auth"), "Общий пост")

	cold := app.get(t, "/", reader)
	require.Equal(t, http.StatusOK, cold.Code)
	assert.Equal(t, "MISS", cold.Header().Get("X-Cache"))
	body := cold.Body.String()
	assert.Contains(t, body, "Общий пост")
	assert.NotContains(t, body, "/profile/reader/")
	assert.NotContains(t, body, "/auth/logout/")
	assert.Contains(t, body, "/auth/login/")

	guest := app.get(t, "/", nil)
	assert.Equal(t, "HIT", guest.Header().Get("X-Cache"))
	assert.Equal(t, cold.Body.Bytes(), guest.Body.Bytes())

	require.NoError(t, app.store.Clear(context.Background()))
	fresh := app.get(t, "/", nil)
	assert.Equal(t, "MISS", fresh.Header().Get("X-Cache"))
	again := app.get(t, "/", reader)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, fresh.Body.Bytes(), again.Body.Bytes())
	assert.Equal(t, cold.Body.Bytes(), fresh.Body.Bytes())
}

func TestIndexPagination(t *testing.T) {
	app := newTestApp(t)
	author := app.user(t, "auth")
	for i := 0; i < 13; i++ {
		app.post(t, author, fmt.Sprintf("post-%02d", i))
	}

	first := app.get(t, "/", nil).Body.String()
	assert.Equal(t, 10, strings.Count(first, `class="post"`))
	second := app.get(t, "/?page=2", nil).Body.String()
	assert.Equal(t, 3, strings.Count(second, `class="post"`))
	empty := app.get(t, "/?page=9", nil)
	assert.Equal(t, http.StatusOK, empty.Code)
	assert.Zero(t, strings.Count(empty.Body.String(), `class="post"`))
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm(t, "/auth/signup/", url.Values{"username": {"leo"}, "email": {"leo@example.com"}, "password": {"war-and-peace"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.NotEmpty(t, w.Result().Cookies())

	w = app.postForm(t, "/auth/login/", url.Values{"username": {"leo"}, "password": {"wrong-password"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.postForm(t, "/auth/login/", url.Values{"username": {"leo"}, "password": {"war-and-peace"}, "next": {"/create/"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/create/", w.Header().Get("Location"))
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			session = c
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(session)
	w = app.do(t, req, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.get(t, "/auth/logout/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI(t *testing.T) {
	app := newTestApp(t)
	_, err := service.NewAuthService(app.users, bcrypt.MinCost).Register(context.Background(), service.RegisterInput{Username: "api", Password: "12345678"})
	require.NoError(t, err)
	app.user(t, "auth")

	call := func(method, target, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, target, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		app.engine.ServeHTTP(w, req)
		var out map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		return w, out
	}

	w, _ := call(http.MethodPost, "/api/v1/posts", "", map[string]any{"text": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out := call(http.MethodPost, "/api/v1/auth/token", "", map[string]any{"username": "api", "password": "12345678"})
	require.Equal(t, http.StatusOK, w.Code)
	token := out["data"].(map[string]any)["token"].(string)

	w, _ = call(http.MethodPost, "/api/v1/posts", token, map[string]any{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = call(http.MethodPost, "/api/v1/posts", token, map[string]any{"text": "from api"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int(out["data"].(map[string]any)["id"].(float64))

	w, _ = call(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", id), token, map[string]any{"text": "nice"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, out = call(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", id), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["data"], 1)

	w, _ = call(http.MethodPost, "/api/v1/relations/follow", token, map[string]any{"author": "auth"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, out = call(http.MethodGet, "/api/v1/relations/api/following", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"auth"}, out["data"].(map[string]any)["list"])
	w, _ = call(http.MethodPost, "/api/v1/relations/follow", token, map[string]any{"author": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = call(http.MethodGet, "/api/v1/posts/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = call(http.MethodGet, "/api/v1/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = call(http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", id), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.get(t, "/healthz", nil).Code)
	app.get(t, "/", nil)
	w := app.get(t, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "yatube_http_requests_total")
}
