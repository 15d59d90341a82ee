package repository

import (
	"context"
	"errors"
	"fmt"

	"postsapi/internal/domain/post"
)

var (
	ErrPostNotFound      = errors.New("repository: 投稿が見つかりません")
	ErrPostAlreadyExists = errors.New("repository: 同じ ID の投稿がすでに存在します")
)

// UniquenessViolation は一意制約に違反した書き込みを表す。
// どのバックエンドもデータベース固有のエラーをこの型に変換して返す。
type UniquenessViolation struct {
	Field string
	Value string
}

func (e *UniquenessViolation) Error() string {
	return fmt.Sprintf("repository: %s %q はすでに使われています", e.Field, e.Value)
}

// TitleTaken は title の一意制約違反を返す。
func TitleTaken(title string) *UniquenessViolation {
	return &UniquenessViolation{Field: "title", Value: title}
}

// ListFilter は一覧取得の条件。Title が nil なら絞り込まない。
type ListFilter struct {
	Title  *string
	Offset int
	Limit  int
}

/**
 * 投稿リポジトリの契約
 * Create: 新規保存。title 重複は *UniquenessViolation、ID 重複は ErrPostAlreadyExists
 * Get: ID 取得、未存在時は ErrPostNotFound
 * List: createdAt の降順で Offset/Limit を適用して返す
 * Replace: 丸ごと上書き、未存在なら作成（upsert）。title 重複は *UniquenessViolation
 * Update: 既存のみ更新、未存在時は ErrPostNotFound。title 重複は *UniquenessViolation
 * Delete: 物理削除、未存在時は ErrPostNotFound
 */
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) error
	Get(ctx context.Context, id post.ID) (*post.Post, error)
	List(ctx context.Context, filter ListFilter) ([]*post.Post, error)
	Replace(ctx context.Context, p *post.Post) error
	Update(ctx context.Context, p *post.Post) error
	Delete(ctx context.Context, id post.ID) error
}
