package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"postsapi/internal/app"
	"postsapi/internal/config"
	"postsapi/internal/domain/post"
	"postsapi/internal/port/repository"
)

// postCreator は投入に使うユースケースの契約。
type postCreator interface {
	Create(ctx context.Context, fields post.Fields) (*post.Post, error)
}

// samplePosts は投入するサンプルデータ。
var samplePosts = []post.Fields{
	{Title: "title1", Author: "author1", Category: "category1"},
	{Title: "title2", Author: "author2", Category: "category2"},
	{Title: "title3", Author: "author3"},
}

func main() {
	ctx := context.Background()

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	container, err := app.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("init container: %v", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Printf("close container: %v", err)
		}
	}()

	if cfg.Store == config.StoreMemory {
		log.Printf("STORE_BACKEND=memory: 投入したデータはプロセス終了とともに消えます")
	}

	created, err := seedPosts(ctx, container.PostService, samplePosts)
	if err != nil {
		log.Fatalf("seed posts: %v", err)
	}

	log.Printf("%s seeding completed: %d created, %d skipped", cfg.Store, created, len(samplePosts)-created)
}

/**
 * サンプル投稿を順に作成する。同じ title が既にあるものは飛ばす。
 */
func seedPosts(ctx context.Context, svc postCreator, posts []post.Fields) (int, error) {
	created := 0
	for _, fields := range posts {
		p, err := svc.Create(ctx, fields)
		var violation *repository.UniquenessViolation
		if errors.As(err, &violation) {
			log.Printf("skip %q: already exists", fields.Title)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create post %q: %w", fields.Title, err)
		}
		log.Printf("created %s %q", p.ID(), p.Title())
		created++
	}
	return created, nil
}
