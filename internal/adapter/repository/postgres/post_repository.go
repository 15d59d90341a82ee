package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	postdomain "postsapi/internal/domain/post"
	"postsapi/internal/port/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode  = "23505"
	titleConstraintName  = "posts_title_key"
	primaryKeyConstraint = "posts_pkey"
)

var (
	errNilPost       = errors.New("postgresrepository: post is nil")
	errMissingClient = errors.New("postgresrepository: database is missing")
)

// DBTX は pgxpool.Pool と pgx.Tx が共通に持つ操作。
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postRow は posts テーブルの 1 行。
type postRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	Category  string    `db:"category"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PostRepository は PostgreSQL を利用した Post リポジトリ実装。
type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) (*PostRepository, error) {
	if db == nil {
		return nil, errMissingClient
	}
	return &PostRepository{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS posts (
	id         CHAR(24)    PRIMARY KEY,
	title      TEXT        NOT NULL,
	author     TEXT        NOT NULL,
	category   TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT posts_title_key UNIQUE (title)
);
CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC, id DESC);
`

// EnsureSchema は posts テーブルがなければ作成する。
func (r *PostRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure posts schema: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	const query = `
		INSERT INTO posts (id, title, author, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, string(p.ID()), p.Title(), p.Author(), p.Category(), p.CreatedAt(), p.UpdatedAt())
	return translateWriteError("insert post", p, err)
}

func (r *PostRepository) Get(ctx context.Context, id postdomain.ID) (*postdomain.Post, error) {
	const query = `
		SELECT id, title, author, category, created_at, updated_at
		FROM posts
		WHERE id = $1
	`
	var row postRow
	err := r.db.QueryRow(ctx, query, string(id)).Scan(
		&row.ID,
		&row.Title,
		&row.Author,
		&row.Category,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return row.restore()
}

func (r *PostRepository) List(ctx context.Context, filter repository.ListFilter) ([]*postdomain.Post, error) {
	query, args := listQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[postRow])
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}

	posts := make([]*postdomain.Post, 0, len(collected))
	for _, row := range collected {
		p, err := row.restore()
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Replace は id と created_at 以外を上書きし、行がなければ挿入する。
func (r *PostRepository) Replace(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	const query = `
		INSERT INTO posts (id, title, author, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, string(p.ID()), p.Title(), p.Author(), p.Category(), p.CreatedAt(), p.UpdatedAt())
	return translateWriteError("replace post", p, err)
}

func (r *PostRepository) Update(ctx context.Context, p *postdomain.Post) error {
	if p == nil {
		return errNilPost
	}

	const query = `
		UPDATE posts
		SET title = $2, author = $3, category = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, string(p.ID()), p.Title(), p.Author(), p.Category(), p.UpdatedAt())
	if err != nil {
		return translateWriteError("update post", p, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id postdomain.ID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrPostNotFound
	}
	return nil
}

func listQuery(filter repository.ListFilter) (string, []any) {
	query := `SELECT id, title, author, category, created_at, updated_at FROM posts`
	args := make([]any, 0, 3)
	if filter.Title != nil {
		args = append(args, *filter.Title)
		query += fmt.Sprintf(` WHERE title = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	return query, args
}

// translateWriteError は一意制約違反 (23505) を制約名で振り分ける。
func translateWriteError(op string, p *postdomain.Post, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		switch pgErr.ConstraintName {
		case titleConstraintName:
			return repository.TitleTaken(p.Title())
		case primaryKeyConstraint:
			return repository.ErrPostAlreadyExists
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r postRow) restore() (*postdomain.Post, error) {
	p, err := postdomain.Restore(
		postdomain.ID(r.ID),
		postdomain.Fields{Title: r.Title, Author: r.Author, Category: r.Category},
		r.CreatedAt.UTC(),
		r.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("restore post: %w", err)
	}
	return p, nil
}
