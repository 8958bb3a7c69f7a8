package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/service"
)

// Index 首页；整页会被缓存，因此不渲染任何与当前用户相关的内容
func (h *Handler) Index(c *gin.Context) {
	page, err := h.feedService.Index(c.Request.Context(), pageParam(c))
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.HTML(http.StatusOK, "posts/index.html", gin.H{
		"Title": "Последние обновления на сайте",
		"Page":  page,
	})
}

func (h *Handler) GroupPosts(c *gin.Context) {
	group, page, err := h.feedService.Group(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			h.NotFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "posts/group_list.html", gin.H{
		"Title": "Записи сообщества " + group.Title,
		"Group": group,
		"Page":  page,
	})
}

func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	author, page, err := h.feedService.Profile(ctx, c.Param("username"), pageParam(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.NotFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	counts, err := h.relService.Counts(ctx, author.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	following := false
	if viewer, ok := auth.CurrentUser(c); ok {
		if following, err = h.relService.IsFollowing(ctx, viewer.ID, author.ID); err != nil {
			h.serverError(c, err)
			return
		}
	}
	h.render(c, http.StatusOK, "posts/profile.html", gin.H{
		"Title":     "Профайл пользователя " + author.DisplayName(),
		"Author":    author,
		"Page":      page,
		"Counts":    counts,
		"Following": following,
	})
}

// FollowIndex 关注作者的帖子流，需登录
func (h *Handler) FollowIndex(c *gin.Context) {
	viewer, _ := auth.CurrentUser(c)
	page, err := h.feedService.Following(c.Request.Context(), viewer.ID, pageParam(c))
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "posts/follow.html", gin.H{"Title": "Подписки", "Page": page})
}

func (h *Handler) AboutAuthor(c *gin.Context) {
	h.render(c, http.StatusOK, "about/author.html", gin.H{"Title": "Об авторе"})
}

func (h *Handler) AboutTech(c *gin.Context) {
	h.render(c, http.StatusOK, "about/tech.html", gin.H{"Title": "Технологии"})
}
