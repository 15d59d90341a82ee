package app

import (
	"context"
	"errors"
	"fmt"

	"postsapi/internal/adapter/http/handler"
	repoFirestore "postsapi/internal/adapter/repository/firestore"
	repoMemory "postsapi/internal/adapter/repository/memory"
	repoMongo "postsapi/internal/adapter/repository/mongo"
	repoPostgres "postsapi/internal/adapter/repository/postgres"
	"postsapi/internal/config"
	"postsapi/internal/port/repository"
	postusecase "postsapi/internal/usecase/post"
)

var (
	errFirestoreClientUnavailable = errors.New("app: Firestore クライアントが初期化されていません")
	errMongoClientUnavailable     = errors.New("app: MongoDB クライアントが初期化されていません")
	errPostgresPoolUnavailable    = errors.New("app: PostgreSQL の接続プールが初期化されていません")
)

var (
	infraFactory          = NewInfra
	postRepositoryFactory = newPostRepository
)

// Container は API で使用する依存を保持する。
type Container struct {
	Infra       *Infra
	PostRepo    repository.PostRepository
	PostService *postusecase.Service
	PostHandler *handler.PostHandler
	closeInfra  func() error
}

/**
 * 設定に従って保存先を開き、リポジトリからハンドラーまでを組み立てる。
 */
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	infra, err := infraFactory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infra: %w", err)
	}

	postRepo, err := postRepositoryFactory(ctx, cfg.Store, infra)
	if err != nil {
		_ = mergeCloseError(nil, "infra", infra.Close)
		return nil, fmt.Errorf("provide post repository: %w", err)
	}

	service := postusecase.NewService(postRepo)

	return &Container{
		Infra:       infra,
		PostRepo:    postRepo,
		PostService: service,
		PostHandler: handler.NewPostHandler(service),
		closeInfra:  infra.Close,
	}, nil
}

/**
 * 生成時に開いたリソースを閉じる。
 */
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	return mergeCloseError(nil, "infra", c.closeInfra)
}

/**
 * 保存先に応じたリポジトリを返す。Mongo / Postgres はインデックスとテーブルを用意する。
 */
func newPostRepository(ctx context.Context, store config.StoreBackend, infra *Infra) (repository.PostRepository, error) {
	switch store {
	case config.StoreFirestore:
		if infra.Firestore() == nil {
			return nil, errFirestoreClientUnavailable
		}
		repo, err := repoFirestore.NewPostRepository(infra.Firestore())
		if err != nil {
			return nil, fmt.Errorf("new firestore post repository: %w", err)
		}
		return repo, nil
	case config.StoreMongo:
		if infra.Mongo() == nil {
			return nil, errMongoClientUnavailable
		}
		repo, err := repoMongo.NewPostRepository(infra.Mongo())
		if err != nil {
			return nil, fmt.Errorf("new mongo post repository: %w", err)
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case config.StorePostgres:
		if infra.Postgres() == nil {
			return nil, errPostgresPoolUnavailable
		}
		repo, err := repoPostgres.NewPostRepository(infra.Postgres())
		if err != nil {
			return nil, fmt.Errorf("new postgres post repository: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return repoMemory.NewInMemoryPostRepository(), nil
	}
}
