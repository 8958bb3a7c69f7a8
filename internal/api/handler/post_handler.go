package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/yatube/internal/auth"
	"github.com/d60-Lab/yatube/internal/service"
)

// postForm 创建/编辑帖子表单
type postForm struct {
	Text    string `form:"text" binding:"required,notblank"`
	Group   string `form:"group"`
	GroupID *uint  `form:"-"`
}

func postPath(id uint) string { return fmt.Sprintf("/posts/%d/", id) }

func (h *Handler) PostDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	h.renderDetail(c, id, http.StatusOK, "")
}

func (h *Handler) renderDetail(c *gin.Context, id uint, status int, commentErr string) {
	ctx := c.Request.Context()
	post, err := h.postService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			h.NotFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	n, err := h.postService.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, status, "posts/post_detail.html", gin.H{
		"Title":        post.Excerpt(),
		"Post":         post,
		"AuthorPosts":  n,
		"CommentError": commentErr,
	})
}

func (h *Handler) PostCreateForm(c *gin.Context) {
	h.renderPostForm(c, http.StatusOK, postForm{}, 0, "")
}

func (h *Handler) PostCreate(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	form, in, ok := h.bindPostForm(c, 0)
	if !ok {
		return
	}
	if _, err := h.postService.Create(c.Request.Context(), user, in); err != nil {
		h.postFormError(c, err, form, 0)
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+user.Username+"/")
}

func (h *Handler) PostEditForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			h.NotFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	user, _ := auth.CurrentUser(c)
	if post.AuthorID != user.ID {
		c.Redirect(http.StatusFound, postPath(id))
		return
	}
	h.renderPostForm(c, http.StatusOK, postForm{Text: post.Text, GroupID: post.GroupID}, id, "")
}

// PostEdit 非作者被重定向回帖子详情，数据保持不变
func (h *Handler) PostEdit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	user, _ := auth.CurrentUser(c)
	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		h.postFormError(c, err, postForm{}, id)
		return
	}
	if post.AuthorID != user.ID {
		c.Redirect(http.StatusFound, postPath(id))
		return
	}
	form, in, ok := h.bindPostForm(c, id)
	if !ok {
		return
	}
	if _, err := h.postService.Edit(c.Request.Context(), user, id, in); err != nil {
		h.postFormError(c, err, form, id)
		return
	}
	c.Redirect(http.StatusFound, postPath(id))
}

func (h *Handler) PostDelete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	user, _ := auth.CurrentUser(c)
	err := h.postService.Delete(c.Request.Context(), user, id)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/profile/"+user.Username+"/")
	case errors.Is(err, service.ErrForbidden):
		c.Redirect(http.StatusFound, postPath(id))
	case errors.Is(err, service.ErrPostNotFound):
		h.NotFound(c)
	default:
		h.serverError(c, err)
	}
}

// AddComment 评论为空时重新渲染详情页（422），成功后跳回详情
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	user, _ := auth.CurrentUser(c)
	_, err := h.postService.AddComment(c.Request.Context(), user, id, c.PostForm("text"))
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, postPath(id))
	case errors.Is(err, service.ErrEmptyText):
		h.renderDetail(c, id, http.StatusUnprocessableEntity, "Комментарий не может быть пустым")
	case errors.Is(err, service.ErrPostNotFound):
		h.NotFound(c)
	default:
		h.serverError(c, err)
	}
}

// CommentRedirect handles GET on the comment URL.
func (h *Handler) CommentRedirect(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	c.Redirect(http.StatusFound, postPath(id))
}

// bindPostForm parses text, group and the optional image. On failure the
// form has already been re-rendered.
func (h *Handler) bindPostForm(c *gin.Context, postID uint) (postForm, service.PostInput, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)

	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		form.Text = c.PostForm("text")
		h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Текст поста не может быть пустым")
		return form, service.PostInput{}, false
	}
	if g := strings.TrimSpace(form.Group); g != "" {
		gid, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Выберите группу из списка")
			return form, service.PostInput{}, false
		}
		v := uint(gid)
		form.GroupID = &v
	}
	in := service.PostInput{Text: form.Text, GroupID: form.GroupID}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Не удалось прочитать файл")
		return form, service.PostInput{}, false
	default:
		if fh.Size > h.maxUpload {
			h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Файл слишком большой")
			return form, service.PostInput{}, false
		}
		f, err := fh.Open()
		if err != nil {
			h.serverError(c, err)
			return form, service.PostInput{}, false
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
		if err != nil {
			h.serverError(c, err)
			return form, service.PostInput{}, false
		}
		in.ImageName = fh.Filename
		in.Image = data
	}
	return form, in, true
}

func (h *Handler) postFormError(c *gin.Context, err error, form postForm, postID uint) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.Redirect(http.StatusFound, postPath(postID))
	case errors.Is(err, service.ErrPostNotFound):
		h.NotFound(c)
	case errors.Is(err, service.ErrEmptyText):
		h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Текст поста не может быть пустым")
	case errors.Is(err, service.ErrGroupNotFound):
		h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Выберите группу из списка")
	case errors.Is(err, service.ErrInvalidImage):
		h.renderPostForm(c, http.StatusUnprocessableEntity, form, postID, "Загрузите корректное изображение")
	default:
		h.serverError(c, err)
	}
}

func (h *Handler) renderPostForm(c *gin.Context, status int, form postForm, postID uint, msg string) {
	groups, err := h.postService.Groups(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	title := "Новый пост"
	if postID != 0 {
		title = "Редактировать пост"
	}
	h.render(c, status, "posts/create_post.html", gin.H{
		"Title":  title,
		"Form":   form,
		"Groups": groups,
		"IsEdit": postID != 0,
		"PostID": postID,
		"Error":  msg,
	})
}
