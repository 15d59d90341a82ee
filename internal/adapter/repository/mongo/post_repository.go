package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	postdomain "postsapi/internal/domain/post"
	"postsapi/internal/port/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	postsCollection = "posts"
	// titleIndexName は title の一意インデックス名。重複エラーの判別にも使う。
	titleIndexName = "title_unique"
)

var (
	errNilPost       = errors.New("mongorepository: post is nil")
	errMissingClient = errors.New("mongorepository: database is missing")
)

// postDocument は posts コレクションのドキュメント構造。
type postDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Author    string             `bson:"author"`
	Category  string             `bson:"category"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// PostRepository は MongoDB を利用した Post リポジトリ実装。
type PostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) (*PostRepository, error) {
	if db == nil {
		return nil, errMissingClient
	}
	return &PostRepository{coll: db.Collection(postsCollection)}, nil
}

/**
 * title の一意インデックスと一覧用インデックスを作成する。作成済みなら何もしない。
 */
func (r *PostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(titleIndexName),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(ctx, doc)
	return translateWriteError("insert post", p, err)
}

func (r *PostRepository) Get(ctx context.Context, id postdomain.ID) (*postdomain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, repository.ErrPostNotFound
	}

	var doc postDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return doc.restore()
}

func (r *PostRepository) List(ctx context.Context, filter repository.ListFilter) ([]*postdomain.Post, error) {
	cur, err := r.coll.Find(ctx, listFilter(filter), listOptions(filter))
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}

	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]*postdomain.Post, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.restore()
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Replace は _id 以外を丸ごと置き換える。存在しなければ作成する。
func (r *PostRepository) Replace(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	_, err = r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return translateWriteError("replace post", p, err)
}

func (r *PostRepository) Update(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{
		"title":     doc.Title,
		"author":    doc.Author,
		"category":  doc.Category,
		"updatedAt": doc.UpdatedAt,
	}})
	if err != nil {
		return translateWriteError("update post", p, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id postdomain.ID) error {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return repository.ErrPostNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrPostNotFound
	}
	return nil
}

func listFilter(filter repository.ListFilter) bson.M {
	if filter.Title == nil {
		return bson.M{}
	}
	return bson.M{"title": *filter.Title}
}

func listOptions(filter repository.ListFilter) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return opts
}

/**
 * 重複キーエラーを一意制約違反に変換する。
 * title インデックスでの衝突は UniquenessViolation、それ以外（_id）は ErrPostAlreadyExists。
 */
func translateWriteError(op string, p *postdomain.Post, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), titleIndexName) {
			return repository.TitleTaken(p.Title())
		}
		return repository.ErrPostAlreadyExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toDocument(p *postdomain.Post) (postDocument, error) {
	oid, err := primitive.ObjectIDFromHex(string(p.ID()))
	if err != nil {
		return postDocument{}, fmt.Errorf("encode post id %q: %w", p.ID(), err)
	}
	return postDocument{
		ID:        oid,
		Title:     p.Title(),
		Author:    p.Author(),
		Category:  p.Category(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}, nil
}

func (d postDocument) restore() (*postdomain.Post, error) {
	if d.ID.IsZero() {
		return nil, fmt.Errorf("restore post: %w", postdomain.ErrEmptyID)
	}
	p, err := postdomain.Restore(
		postdomain.ID(d.ID.Hex()),
		postdomain.Fields{Title: d.Title, Author: d.Author, Category: d.Category},
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("restore post: %w", err)
	}
	return p, nil
}
