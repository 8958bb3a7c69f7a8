package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/pkg/response"
)

type followRequest struct {
	Author string `json:"author" binding:"required,notblank"`
}

// ProfileFollow 页面上的关注按钮，完成后回到作者主页
func (h *Handler) ProfileFollow(c *gin.Context) {
	h.toggleFollow(c, h.relService.FollowByUsername)
}

func (h *Handler) ProfileUnfollow(c *gin.Context) {
	h.toggleFollow(c, h.relService.UnfollowByUsername)
}

func (h *Handler) toggleFollow(c *gin.Context, op func(ctx context.Context, userID uint, author string) (*model.User, error)) {
	user, _ := auth.CurrentUser(c)
	username := c.Param("username")
	if _, err := op(c.Request.Context(), user.ID, username); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.NotFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+username+"/")
}

// Follow 关注作者
// @Summary 关注作者
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body followRequest true "作者用户名"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, _ := auth.CurrentUser(c)
	if _, err := h.relService.FollowByUsername(c.Request.Context(), user.ID, req.Author); err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body followRequest true "作者用户名"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, _ := auth.CurrentUser(c)
	if _, err := h.relService.UnfollowByUsername(c.Request.Context(), user.ID, req.Author); err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{username}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page, pageSize := pageParam(c), h.pageSizeParam(c)
	list, err := h.relService.ListFollowing(c.Request.Context(), c.Param("username"), page, pageSize)
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{username}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	page, pageSize := pageParam(c), h.pageSizeParam(c)
	list, err := h.relService.ListFollowers(c.Request.Context(), c.Param("username"), page, pageSize)
	if err != nil {
		apiError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

func (h *Handler) pageSizeParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || n < 1 || n > 100 {
		return h.pageSize
	}
	return n
}
