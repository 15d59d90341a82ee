package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	postdomain "postsapi/internal/domain/post"
	"postsapi/internal/port/repository"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// postsCollection は Firestore 上の posts コレクション名。
const postsCollection = "posts"

var (
	// errNilPost は nil を保存しようとした際のバリデーションエラー。
	errNilPost = errors.New("firestorerepository: post is nil")
	// errMissingClient は Firestore クライアント未設定時の初期化エラー。
	errMissingClient = errors.New("firestorerepository: firestore client is missing")
)

// postDocument は Firestore の posts ドキュメント構造を表す。
type postDocument struct {
	PostID    string    `firestore:"post_id"`
	Title     string    `firestore:"title"`
	Author    string    `firestore:"author"`
	Category  string    `firestore:"category"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// PostRepository は Firestore を利用した Post リポジトリ実装。
// title の一意性はトランザクション内の title 検索で確認する。
type PostRepository struct {
	client *firestore.Client
}

// NewPostRepository は Firestore クライアントを受け取って PostRepository を作成する。
func NewPostRepository(client *firestore.Client) (*PostRepository, error) {
	if client == nil {
		return nil, errMissingClient
	}
	return &PostRepository{client: client}, nil
}

func (r *PostRepository) posts() *firestore.CollectionRef {
	return r.client.Collection(postsCollection)
}

// Create は新しい Post を Firestore に保存する。
func (r *PostRepository) Create(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	ref := r.posts().Doc(string(p.ID()))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.ensureTitleAvailable(tx, p); err != nil {
			return err
		}
		return tx.Create(ref, toDocument(p))
	})
	return translateWriteError("create post document", err)
}

// Get は指定 ID の Post を Firestore から取得する。
func (r *PostRepository) Get(ctx context.Context, id postdomain.ID) (*postdomain.Post, error) {
	if id == "" {
		return nil, repository.ErrPostNotFound
	}

	doc, err := r.posts().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post document: %w", err)
	}

	return restorePostFromDoc(doc)
}

// List は created_at の降順で Post を取得する。title 指定時は完全一致で絞り込む。
func (r *PostRepository) List(ctx context.Context, filter repository.ListFilter) ([]*postdomain.Post, error) {
	query := r.posts().Query
	if filter.Title != nil {
		query = query.Where("title", "==", *filter.Title)
	}
	query = query.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	posts := make([]*postdomain.Post, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate posts: %w", err)
		}

		p, err := restorePostFromDoc(doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	return posts, nil
}

// Replace はドキュメントを丸ごと書き換える。存在しなければ作成する。
func (r *PostRepository) Replace(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	ref := r.posts().Doc(string(p.ID()))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.ensureTitleAvailable(tx, p); err != nil {
			return err
		}
		return tx.Set(ref, toDocument(p))
	})
	return translateWriteError("replace post document", err)
}

// Update は既存の Post を Firestore 上で更新する。
func (r *PostRepository) Update(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}
	if p.ID() == "" {
		return repository.ErrPostNotFound
	}

	ref := r.posts().Doc(string(p.ID()))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// 書き込みより前に読み取りをすべて済ませる
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		if err := r.ensureTitleAvailable(tx, p); err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "title", Value: p.Title()},
			{Path: "author", Value: p.Author()},
			{Path: "category", Value: p.Category()},
			{Path: "updated_at", Value: p.UpdatedAt()},
		})
	})
	return translateWriteError("update post document", err)
}

// Delete は Post を物理削除する。存在しなければ NotFound。
func (r *PostRepository) Delete(ctx context.Context, id postdomain.ID) error {
	if id == "" {
		return repository.ErrPostNotFound
	}

	_, err := r.posts().Doc(string(id)).Delete(ctx, firestore.Exists)
	return translateWriteError("delete post document", err)
}

/**
 * 同じ title を持つ別の投稿がないか確認する。
 * 読み取りはトランザクションに含め、同時に書き込まれた場合はコミット時に再試行させる。
 */
func (r *PostRepository) ensureTitleAvailable(tx *firestore.Transaction, p *postdomain.Post) error {
	iter := tx.Documents(r.posts().Where("title", "==", p.Title()).Limit(2))
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query posts by title: %w", err)
		}
		if doc.Ref.ID != string(p.ID()) {
			return repository.TitleTaken(p.Title())
		}
	}
}

// translateWriteError は gRPC のステータスをリポジトリのエラーに変換する。
func translateWriteError(op string, err error) error {
	if err == nil {
		return nil
	}

	var uv *repository.UniquenessViolation
	if errors.As(err, &uv) {
		return uv
	}

	switch status.Code(err) {
	case codes.AlreadyExists:
		return repository.ErrPostAlreadyExists
	case codes.NotFound:
		return repository.ErrPostNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toDocument(p *postdomain.Post) postDocument {
	return postDocument{
		PostID:    string(p.ID()),
		Title:     p.Title(),
		Author:    p.Author(),
		Category:  p.Category(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

func (d postDocument) restore() (*postdomain.Post, error) {
	p, err := postdomain.Restore(
		postdomain.ID(d.PostID),
		postdomain.Fields{Title: d.Title, Author: d.Author, Category: d.Category},
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("restore post: %w", err)
	}
	return p, nil
}

// restorePostFromDoc は Firestore ドキュメントから Post ドメインを復元する。
func restorePostFromDoc(doc *firestore.DocumentSnapshot) (*postdomain.Post, error) {
	var payload postDocument
	if err := doc.DataTo(&payload); err != nil {
		return nil, fmt.Errorf("decode post document: %w", err)
	}
	if payload.PostID == "" {
		payload.PostID = doc.Ref.ID
	}
	return payload.restore()
}
