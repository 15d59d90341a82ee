package post

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Fields は作成・置換時に受け付ける投稿の中身。
type Fields struct {
	Title    string `json:"title" validate:"required,notblank"`
	Author   string `json:"author" validate:"required,notblank"`
	Category string `json:"category"`
}

// Patch は部分更新で指定された項目のみを保持する。nil は「指定なし」。
type Patch struct {
	Title    *string
	Author   *string
	Category *string
}

func (p Patch) mergeInto(f Fields) Fields {
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Author != nil {
		f.Author = *p.Author
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	return f
}

// FieldViolation は 1 項目分の検証エラー。
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError は項目ごとの検証エラーをまとめて保持する。
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "post: validation failed: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// エラー上の項目名は JSON のキー名にそろえる
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("post: register notblank: %v", err))
	}
	return v
}

/**
 * 必須項目の欠落を項目順に ValidationError として返す。問題がなければ nil。
 */
func (f Fields) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("post: validate fields: %w", err)
	}

	out := &ValidationError{Violations: make([]FieldViolation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, FieldViolation{
			Field:   fe.Field(),
			Message: violationMessage(fe),
		})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("Path `%s` is required.", fe.Field())
	default:
		return fmt.Sprintf("Path `%s` is invalid (%s).", fe.Field(), fe.Tag())
	}
}
