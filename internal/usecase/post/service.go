package post

import (
	"context"
	"errors"
	"math"
	"time"

	"postsapi/internal/domain/post"
	"postsapi/internal/port/repository"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 30
	MaxPerPage     = 100
)

var (
	// ErrPostNotFound は ID が不正、または該当する投稿が存在しない場合に返される。
	ErrPostNotFound = errors.New("post: 投稿が見つかりません")
	// ErrPostAlreadyExists は ID が衝突した場合に返される。
	ErrPostAlreadyExists = errors.New("post: 同じ ID の投稿がすでに存在します")
	// ErrNilPost は読み込み済みの投稿なしで書き込み系を呼んだ際に返される。
	ErrNilPost = errors.New("post: current post is nil")
)

// ListQuery は一覧取得の入力値。0 以下の Page/PerPage は既定値に置き換える。
type ListQuery struct {
	Title   *string
	Page    int
	PerPage int
}

func (q ListQuery) filter() repository.ListFilter {
	page := q.Page
	if page <= 0 {
		page = DefaultPage
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	// (page-1)*perPage が int に収まる範囲に丸める
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return repository.ListFilter{
		Title:  q.Title,
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	}
}

/**
 * 投稿リソースのユースケース
 * repo: 投稿リポジトリ
 * now: 時刻の取得元（テストで差し替える）
 */
type Service struct {
	repo repository.PostRepository
	now  func() time.Time
}

type Option func(*Service)

// WithClock は作成・更新時刻の取得元を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo repository.PostRepository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  defaultClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// 保存先によって精度が異なるため、ミリ秒に丸めた UTC にそろえる
func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

/**
 * ID 文字列から投稿を取得する。ObjectID として不正な ID も未存在として扱う。
 */
func (s *Service) Get(ctx context.Context, rawID string) (*post.Post, error) {
	id, err := post.ParseID(rawID)
	if err != nil {
		return nil, ErrPostNotFound
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]*post.Post, error) {
	posts, err := s.repo.List(ctx, q.filter())
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Service) Create(ctx context.Context, fields post.Fields) (*post.Post, error) {
	p, err := post.New(fields, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, translate(err)
	}
	return p, nil
}

/**
 * ID と作成時刻以外を fields で置き換える。保存時に消えていれば作り直す。
 */
func (s *Service) Replace(ctx context.Context, current *post.Post, fields post.Fields) (*post.Post, error) {
	if current == nil {
		return nil, ErrNilPost
	}

	next, err := current.Replace(fields, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, next); err != nil {
		return nil, translate(err)
	}
	return next, nil
}

/**
 * 指定された項目だけを上書きする。title を変える場合も一意性を確認する。
 */
func (s *Service) Update(ctx context.Context, current *post.Post, patch post.Patch) (*post.Post, error) {
	if current == nil {
		return nil, ErrNilPost
	}

	next, err := current.Apply(patch, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return nil, translate(err)
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, current *post.Post) error {
	if current == nil {
		return ErrNilPost
	}

	if err := s.repo.Delete(ctx, current.ID()); err != nil {
		return translate(err)
	}
	return nil
}

// リポジトリの番兵エラーをユースケースのものに変換する。一意制約違反はそのまま返す。
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		return ErrPostNotFound
	case errors.Is(err, repository.ErrPostAlreadyExists):
		return ErrPostAlreadyExists
	default:
		return err
	}
}
