package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	postdomain "postsapi/internal/domain/post"
	"postsapi/internal/port/repository"
	postusecase "postsapi/internal/usecase/post"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	validation := &postdomain.ValidationError{Violations: []postdomain.FieldViolation{
		{Field: "title", Message: "Path `title` is required."},
		{Field: "author", Message: "Path `author` is required."},
	}}

	cases := []struct {
		name       string
		in         error
		wantStatus int
		wantPublic bool
		wantFields []string
	}{
		{name: "一意制約違反", in: fmt.Errorf("wrap: %w", repository.TitleTaken("t")), wantStatus: http.StatusConflict, wantPublic: true, wantFields: []string{""}},
		{name: "ID 重複は内部エラー", in: fmt.Errorf("create: %w", postusecase.ErrPostAlreadyExists), wantStatus: http.StatusInternalServerError, wantPublic: false},
		{name: "検証エラー", in: validation, wantStatus: http.StatusBadRequest, wantPublic: true, wantFields: []string{"title", "author"}},
		{name: "未存在", in: postusecase.ErrPostNotFound, wantStatus: http.StatusNotFound, wantPublic: true},
		{name: "APIError はそのまま", in: NewAPIError(http.StatusTeapot, "tea"), wantStatus: http.StatusTeapot, wantPublic: true},
		{name: "その他は 500", in: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantPublic: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeError(tc.in)

			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantPublic, got.IsPublic)
			fields := make([]string, 0, len(got.Errors))
			for _, e := range got.Errors {
				fields = append(fields, e.Field)
				assert.Equal(t, "body", e.Location)
			}
			if tc.wantFields == nil {
				assert.Empty(t, fields)
			} else {
				assert.Equal(t, tc.wantFields, fields)
			}
		})
	}
}

func TestAPIError_Response(t *testing.T) {
	cause := errors.New("connection refused")
	internal := NormalizeError(cause)

	assert.ErrorIs(t, internal, cause)

	hidden := internal.response(false)
	assert.Equal(t, errorResponse{Code: 500, Message: "Internal Server Error"}, hidden)

	exposed := internal.response(true)
	assert.Equal(t, "Internal Server Error", exposed.Message)
	assert.Contains(t, exposed.Stack, "connection refused")

	notFound := NormalizeError(postusecase.ErrPostNotFound).response(false)
	assert.Equal(t, errorResponse{Code: 404, Message: "Post does not exist"}, notFound)
}
