package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	postdomain "postsapi/internal/domain/post"
	"postsapi/internal/port/repository"
	postusecase "postsapi/internal/usecase/post"

	"github.com/gin-gonic/gin"
)

const (
	locationBody = "body"

	messageAlreadyExists = "Already Exists"
	messagePostConflict  = "Post already exists"
	messageValidation    = "Validation Error"
	messagePostNotFound  = "Post does not exist"
	messageRouteNotFound = "Not found"
	messageInvalidBody   = "Invalid request body"
	messageInternalError = "Internal Server Error"
)

// FieldError は 1 項目分のエラー詳細。
type FieldError struct {
	Field    string   `json:"field"`
	Location string   `json:"location"`
	Messages []string `json:"messages"`
}

/**
 * クライアントへ返すエラーの正規形
 * IsPublic が false の場合、Message はクライアントに見せない
 */
type APIError struct {
	Message  string
	Status   int
	Errors   []FieldError
	IsPublic bool
	cause    error
}

// NewAPIError は公開してよいエラーを生成する。
func NewAPIError(status int, message string) *APIError {
	return &APIError{Message: message, Status: status, IsPublic: true}
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// errorResponse はエラー時の JSON 本体。
type errorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Stack   string       `json:"stack,omitempty"`
}

func (e *APIError) response(exposeStack bool) errorResponse {
	res := errorResponse{
		Code:    e.Status,
		Message: e.Message,
		Errors:  e.Errors,
	}
	if !e.IsPublic {
		res.Message = http.StatusText(e.Status)
	}
	if exposeStack {
		res.Stack = e.Error()
	}
	return res
}

/**
 * ユースケース・リポジトリ・ドメインのエラーを APIError に写し替える。
 * 判別できないものは 500 の非公開エラーとして扱う。
 */
func NormalizeError(err error) *APIError {
	var (
		apiErr    *APIError
		violation *repository.UniquenessViolation
		invalid   *postdomain.ValidationError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	// title 重複。ID の衝突は default の 500
	case errors.As(err, &violation):
		return &APIError{
			Message: messagePostConflict,
			Status:  http.StatusConflict,
			Errors: []FieldError{{
				Field:    "",
				Location: locationBody,
				Messages: []string{messageAlreadyExists},
			}},
			IsPublic: true,
			cause:    err,
		}
	// 必須項目の欠落
	case errors.As(err, &invalid):
		fields := make([]FieldError, 0, len(invalid.Violations))
		for _, v := range invalid.Violations {
			fields = append(fields, FieldError{
				Field:    v.Field,
				Location: locationBody,
				Messages: []string{v.Message},
			})
		}
		return &APIError{
			Message:  messageValidation,
			Status:   http.StatusBadRequest,
			Errors:   fields,
			IsPublic: true,
			cause:    err,
		}
	case errors.Is(err, postusecase.ErrPostNotFound):
		return &APIError{
			Message:  messagePostNotFound,
			Status:   http.StatusNotFound,
			IsPublic: true,
			cause:    err,
		}
	default:
		return &APIError{
			Message: messageInternalError,
			Status:  http.StatusInternalServerError,
			cause:   err,
		}
	}
}

/**
 * ハンドラーが c.Error に積んだ最後のエラーを正規化して返す。
 * exposeStack が true のときは原因のエラー文字列も stack として返す。
 */
func ErrorHandler(exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		apiErr := NormalizeError(last.Err)
		if apiErr.Status >= http.StatusInternalServerError {
			log.Printf("%s %s 失敗 (request_id=%s): %v", c.Request.Method, c.Request.URL.Path, requestIDFrom(c), last.Err)
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(apiErr.Status, apiErr.response(exposeStack))
	}
}

// パニックは 500 として ErrorHandler に渡す。
func recoverToError(c *gin.Context, recovered any) {
	_ = c.Error(fmt.Errorf("panic recovered: %v", recovered))
	c.Abort()
}

// NotFound は未定義のルートに対する 404。
func NotFound(c *gin.Context) {
	_ = c.Error(NewAPIError(http.StatusNotFound, messageRouteNotFound))
}
