package post

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidID は ObjectID 形式でない識別子を受け取った際に返される。
	ErrInvalidID = errors.New("post: invalid id")
	// ErrEmptyID は ID が空のまま復元しようとした際に返される。
	ErrEmptyID = errors.New("post: id is empty")
)

// ID は投稿の識別子（24 桁の 16 進 ObjectID）。
type ID string

// NewID は新しい ObjectID を採番する。
func NewID() ID {
	return ID(primitive.NewObjectID().Hex())
}

// ParseID validates raw as an ObjectID and returns it in canonical lower-case form.
func ParseID(raw string) (ID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return "", ErrInvalidID
	}
	return ID(oid.Hex()), nil
}

// Post は投稿そのもの。updatedAt は外部には公開しない。
type Post struct {
	id        ID
	title     string
	author    string
	category  string
	createdAt time.Time
	updatedAt time.Time
}

/**
 * 入力値を検証し、新しい ID と作成時刻を持つ Post を生成する。
 */
func New(fields Fields, now time.Time) (*Post, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	return &Post{
		id:        NewID(),
		title:     fields.Title,
		author:    fields.Author,
		category:  fields.Category,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Restore はストレージから読み出した値で Post を復元する。
func Restore(id ID, fields Fields, createdAt, updatedAt time.Time) (*Post, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	return &Post{
		id:        id,
		title:     fields.Title,
		author:    fields.Author,
		category:  fields.Category,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (p *Post) ID() ID {
	return p.id
}

func (p *Post) Title() string {
	return p.title
}

func (p *Post) Author() string {
	return p.author
}

func (p *Post) Category() string {
	return p.category
}

func (p *Post) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Post) UpdatedAt() time.Time {
	return p.updatedAt
}

// Fields は ID とタイムスタンプを除いた投稿の中身を返す。
func (p *Post) Fields() Fields {
	return Fields{
		Title:    p.title,
		Author:   p.author,
		Category: p.category,
	}
}

/**
 * ID と作成時刻だけを引き継ぎ、残りを fields で丸ごと置き換えた Post を返す。
 * fields に含まれない項目は空として扱う。
 */
func (p *Post) Replace(fields Fields, now time.Time) (*Post, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	return &Post{
		id:        p.id,
		title:     fields.Title,
		author:    fields.Author,
		category:  fields.Category,
		createdAt: p.createdAt,
		updatedAt: now,
	}, nil
}

/**
 * patch で指定された項目だけを上書きし、結果全体を検証した Post を返す。
 * 元の Post は変更しない。
 */
func (p *Post) Apply(patch Patch, now time.Time) (*Post, error) {
	merged := patch.mergeInto(p.Fields())
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	next := *p
	next.title = merged.Title
	next.author = merged.Author
	next.category = merged.Category
	next.updatedAt = now
	return &next, nil
}

// View は API で公開する投稿の表現。
type View struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transform は保存済みの Post を公開用の項目だけに絞り込む。
func (p *Post) Transform() View {
	return View{
		ID:        string(p.id),
		Title:     p.title,
		Author:    p.author,
		Category:  p.category,
		CreatedAt: p.createdAt,
	}
}

// TransformAll は一覧の各要素を個別に Transform する。
func TransformAll(posts []*Post) []View {
	views := make([]View, 0, len(posts))
	for _, p := range posts {
		views = append(views, p.Transform())
	}
	return views
}
