package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	postdomain "postsapi/internal/domain/post"
	postusecase "postsapi/internal/usecase/post"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const loadedPostKey = "post"

// 投稿ユースケースの契約。
type PostService interface {
	Get(ctx context.Context, rawID string) (*postdomain.Post, error)
	List(ctx context.Context, q postusecase.ListQuery) ([]*postdomain.Post, error)
	Create(ctx context.Context, fields postdomain.Fields) (*postdomain.Post, error)
	Replace(ctx context.Context, current *postdomain.Post, fields postdomain.Fields) (*postdomain.Post, error)
	Update(ctx context.Context, current *postdomain.Post, patch postdomain.Patch) (*postdomain.Post, error)
	Delete(ctx context.Context, current *postdomain.Post) error
}

type PostHandler struct {
	service PostService
}

// PostHandler を生成する。
func NewPostHandler(service PostService) *PostHandler {
	return &PostHandler{service: service}
}

// POST / PUT / PATCH /posts の入力。JSON とフォームを受け付け、省略された項目は nil。
type PostRequest struct {
	Title    *string `json:"title" form:"title"`
	Author   *string `json:"author" form:"author"`
	Category *string `json:"category" form:"category"`
}

func (r PostRequest) fields() postdomain.Fields {
	return postdomain.Fields{
		Title:    deref(r.Title),
		Author:   deref(r.Author),
		Category: deref(r.Category),
	}
}

func (r PostRequest) patch() postdomain.Patch {
	return postdomain.Patch{
		Title:    r.Title,
		Author:   r.Author,
		Category: r.Category,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Status は GET /status。
func Status(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

/**
 * :id の投稿を読み込み、後続のハンドラーへ渡す。
 * 見つからなければ 404 で打ち切る。
 */
func (h *PostHandler) LoadPost(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Set(loadedPostKey, p)
	c.Next()
}

// loadedPost は LoadPost が解決した投稿を取り出す。
func loadedPost(c *gin.Context) (*postdomain.Post, bool) {
	v, ok := c.Get(loadedPostKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*postdomain.Post)
	return p, ok && p != nil
}

// GET /posts
func (h *PostHandler) ListPosts(c *gin.Context) {
	q := postusecase.ListQuery{
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "perPage"),
	}
	if title := c.Query("title"); title != "" {
		q.Title = &title
	}

	posts, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, postdomain.TransformAll(posts))
}

// POST /posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	req, ok := bindPostRequest(c)
	if !ok {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.fields())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p.Transform())
}

// GET /posts/:id
func (h *PostHandler) GetPost(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.Transform())
}

// PUT /posts/:id
func (h *PostHandler) ReplacePost(c *gin.Context) {
	current, ok := h.current(c)
	if !ok {
		return
	}
	req, ok := bindPostRequest(c)
	if !ok {
		return
	}

	p, err := h.service.Replace(c.Request.Context(), current, req.fields())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p.Transform())
}

// PATCH /posts/:id
func (h *PostHandler) UpdatePost(c *gin.Context) {
	current, ok := h.current(c)
	if !ok {
		return
	}
	req, ok := bindPostRequest(c)
	if !ok {
		return
	}

	p, err := h.service.Update(c.Request.Context(), current, req.patch())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p.Transform())
}

// DELETE /posts/:id
func (h *PostHandler) DeletePost(c *gin.Context) {
	current, ok := h.current(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), current); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) current(c *gin.Context) (*postdomain.Post, bool) {
	p, ok := loadedPost(c)
	if !ok {
		// LoadPost を通らずに呼ばれた場合
		_ = c.Error(errors.New("handler: post is not loaded"))
		return nil, false
	}
	return p, true
}

/**
 * 本文を PostRequest に読み込む。application/x-www-form-urlencoded はフォーム、それ以外は JSON として読む。
 * 空の本文は {} として扱い、読めない本文は 400 Invalid request body。
 */
func bindPostRequest(c *gin.Context) (PostRequest, bool) {
	var req PostRequest
	var err error
	if c.ContentType() == binding.MIMEPOSTForm {
		err = c.ShouldBindWith(&req, binding.Form)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(NewAPIError(http.StatusBadRequest, messageInvalidBody))
		return PostRequest{}, false
	}
	return req, true
}

// 数値として読めないクエリは 0（既定値）として扱う。
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
