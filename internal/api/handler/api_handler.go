package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/pkg/response"
)

type postRequest struct {
	Text  string `json:"text" binding:"required,notblank"`
	Group *uint  `json:"group"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required,notblank"`
}

// ListPosts 首页帖子流
// @Summary 帖子列表
// @Tags 帖子
// @Produce json
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, err := h.feedService.Index(c.Request.Context(), pageParam(c))
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, page)
}

// GetPost 帖子详情（含评论）
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, post)
}

// CreatePost 发帖
// @Summary 创建帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "帖子内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, _ := auth.CurrentUser(c)
	post, err := h.postService.Create(c.Request.Context(), user, service.PostInput{Text: req.Text, GroupID: req.Group})
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			response.BadRequest(c, err.Error())
			return
		}
		apiError(c, err)
		return
	}
	response.Created(c, post)
}

// UpdatePost 编辑帖子，仅作者
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "帖子ID"
// @Param request body postRequest true "帖子内容"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, _ := auth.CurrentUser(c)
	post, err := h.postService.Edit(c.Request.Context(), user, id, service.PostInput{Text: req.Text, GroupID: req.Group})
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, post)
}

// DeletePost 删除帖子，仅作者
// @Summary 删除帖子
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	user, _ := auth.CurrentUser(c)
	if err := h.postService.Delete(c.Request.Context(), user, id); err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListComments 帖子评论
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=[]model.Comment}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, post.Comments)
}

// CreateComment 发表评论
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "帖子ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, _ := auth.CurrentUser(c)
	comment, err := h.postService.AddComment(c.Request.Context(), user, id, req.Text)
	if err != nil {
		apiError(c, err)
		return
	}
	response.Created(c, comment)
}

// GroupFeed 社区帖子流
// @Summary 社区帖子
// @Tags 帖子流
// @Produce json
// @Param slug path string true "社区 slug"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/groups/{slug}/posts [get]
func (h *Handler) GroupFeed(c *gin.Context) {
	group, page, err := h.feedService.Group(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, gin.H{"group": group, "posts": page})
}

// UserFeed 作者帖子流
// @Summary 作者帖子
// @Tags 帖子流
// @Produce json
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{username}/posts [get]
func (h *Handler) UserFeed(c *gin.Context) {
	author, page, err := h.feedService.Profile(c.Request.Context(), c.Param("username"), pageParam(c))
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, gin.H{"author": author, "posts": page})
}

// FollowFeed 关注作者的帖子流
// @Summary 关注流
// @Tags 帖子流
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/follow [get]
func (h *Handler) FollowFeed(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	page, err := h.feedService.Following(c.Request.Context(), user.ID, pageParam(c))
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, page)
}
