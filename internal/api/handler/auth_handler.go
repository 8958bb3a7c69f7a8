package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/pkg/response"
)

type signupForm struct {
	Username  string `form:"username" binding:"required,notblank"`
	Email     string `form:"email"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Password  string `form:"password" binding:"required"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) SignupForm(c *gin.Context) {
	h.render(c, http.StatusOK, "auth/signup.html", gin.H{"Title": "Регистрация", "Form": signupForm{}})
}

func (h *Handler) Signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderSignup(c, form, "Заполните обязательные поля")
		return
	}
	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUsernameTaken):
		h.renderSignup(c, form, "Пользователь с таким именем уже существует")
		return
	case errors.Is(err, service.ErrInvalidEmail):
		h.renderSignup(c, form, "Введите правильный адрес электронной почты")
		return
	case errors.Is(err, service.ErrPasswordTooShort):
		h.renderSignup(c, form, "Пароль слишком короткий")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		h.renderSignup(c, form, "Заполните обязательные поля")
		return
	default:
		h.serverError(c, err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) renderSignup(c *gin.Context, form signupForm, msg string) {
	form.Password = ""
	h.render(c, http.StatusUnprocessableEntity, "auth/signup.html", gin.H{"Title": "Регистрация", "Form": form, "Error": msg})
}

func (h *Handler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Войти", "Next": auth.SafeNext(c.Query("next"))})
}

func (h *Handler) Login(c *gin.Context) {
	next := auth.SafeNext(c.PostForm("next"))
	username := c.PostForm("username")
	user, err := h.authService.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.render(c, http.StatusUnprocessableEntity, "auth/login.html", gin.H{
				"Title":    "Войти",
				"Next":     next,
				"Username": username,
				"Error":    "Неверное имя пользователя или пароль",
			})
			return
		}
		h.serverError(c, err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, next)
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)
	h.render(c, http.StatusOK, "auth/logged_out.html", gin.H{"Title": "Вы вышли", "User": nil})
}

// IssueToken 换取 API 令牌
// @Summary 获取访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body tokenRequest true "用户名和密码"
// @Success 200 {object} response.Response{data=tokenResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.authService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apiError(c, err)
		return
	}
	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, tokenResponse{Token: tok, ExpiresIn: int64(h.tokens.TTL().Seconds())})
}

func (h *Handler) startSession(c *gin.Context, user *model.User) error {
	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, tok, int(h.tokens.TTL().Seconds()), "/", "", h.secure, true)
	return nil
}
