package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	postdomain "postsapi/internal/domain/post"
	"postsapi/internal/port/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func newPost(t *testing.T) *postdomain.Post {
	t.Helper()
	p, err := postdomain.New(postdomain.Fields{Title: "title1", Author: "author1"}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return p
}

func duplicateKey(message string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: message}}}
}

func TestNewPostRepository_NilDatabase(t *testing.T) {
	_, err := NewPostRepository(nil)
	assert.ErrorIs(t, err, errMissingClient)
}

func TestDocumentRoundTrip(t *testing.T) {
	p := newPost(t)

	doc, err := toDocument(p)
	require.NoError(t, err)
	assert.Equal(t, string(p.ID()), doc.ID.Hex())
	assert.Equal(t, "title1", doc.Title)

	// BSON を経由しても同じ値に戻る
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded postDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	restored, err := decoded.restore()
	require.NoError(t, err)
	assert.Equal(t, p.ID(), restored.ID())
	assert.Equal(t, p.Fields(), restored.Fields())
	assert.True(t, p.CreatedAt().Equal(restored.CreatedAt()))
}

func TestRestore_ZeroID(t *testing.T) {
	_, err := postDocument{Title: "t"}.restore()
	assert.ErrorIs(t, err, postdomain.ErrEmptyID)
}

func TestTranslateWriteError(t *testing.T) {
	p := newPost(t)

	t.Run("title の重複は UniquenessViolation", func(t *testing.T) {
		err := translateWriteError("insert post", p, duplicateKey(`E11000 duplicate key error collection: posts.posts index: title_unique dup key: { title: "title1" }`))
		var uv *repository.UniquenessViolation
		require.ErrorAs(t, err, &uv)
		assert.Equal(t, "title", uv.Field)
		assert.Equal(t, "title1", uv.Value)
	})

	t.Run("_id の重複は ErrPostAlreadyExists", func(t *testing.T) {
		err := translateWriteError("insert post", p, duplicateKey(`E11000 duplicate key error collection: posts.posts index: _id_ dup key: { _id: ObjectId('56c787ccc67fc16ccc1a5e92') }`))
		assert.ErrorIs(t, err, repository.ErrPostAlreadyExists)
	})

	t.Run("その他はラップして返す", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := translateWriteError("insert post", p, cause)
		assert.ErrorIs(t, err, cause)
		assert.EqualError(t, err, "insert post: connection reset")
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, translateWriteError("insert post", p, nil))
	})
}

func TestListFilterAndOptions(t *testing.T) {
	assert.Equal(t, bson.M{}, listFilter(repository.ListFilter{}))

	title := "title1"
	assert.Equal(t, bson.M{"title": "title1"}, listFilter(repository.ListFilter{Title: &title}))

	opts := listOptions(repository.ListFilter{Offset: 30, Limit: 30})
	require.NotNil(t, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.EqualValues(t, 30, *opts.Skip)
	assert.EqualValues(t, 30, *opts.Limit)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, opts.Sort)

	first := listOptions(repository.ListFilter{Limit: 10})
	assert.Nil(t, first.Skip)
}

func TestGetAndDelete_InvalidIDIsNotFound(t *testing.T) {
	// コレクションに触れる前に弾かれる
	repo := &PostRepository{}
	_, err := repo.Get(context.Background(), postdomain.ID("zzz"))
	assert.ErrorIs(t, err, repository.ErrPostNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), postdomain.ID("zzz")), repository.ErrPostNotFound)
}
