package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"postsapi/internal/config"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"google.golang.org/api/option"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectTimeout = 5 * time.Second
)

var (
	firestoreClientFactory = newFirestoreClient
	mongoClientFactory     = newMongoClient
	postgresPoolFactory    = newPostgresPool
)

// Infra は外部リソースへの接続をまとめて保持する。選ばれた保存先の分だけ開く。
type Infra struct {
	firestoreClient *firestore.Client
	mongoClient     *mongo.Client
	mongoDatabase   string
	pgPool          *pgxpool.Pool
}

/**
 * cfg.Store に応じてクライアントを初期化して返す。memory の場合は何も開かない。
 */
func NewInfra(ctx context.Context, cfg *config.Config) (*Infra, error) {
	infra := &Infra{}

	switch cfg.Store {
	case config.StoreFirestore:
		client, err := firestoreClientFactory(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		infra.firestoreClient = client
	case config.StoreMongo:
		client, err := mongoClientFactory(ctx, cfg.Mongo, cfg.IsDevelopment())
		if err != nil {
			return nil, err
		}
		infra.mongoClient = client
		infra.mongoDatabase = cfg.Mongo.Database
	case config.StorePostgres:
		pool, err := postgresPoolFactory(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		infra.pgPool = pool
	}

	return infra, nil
}

// Firestore は Firestore クライアントを返す（設定されていない場合は nil）。
func (i *Infra) Firestore() *firestore.Client {
	if i == nil {
		return nil
	}
	return i.firestoreClient
}

// Mongo は設定されたデータベースを返す（設定されていない場合は nil）。
func (i *Infra) Mongo() *mongo.Database {
	if i == nil || i.mongoClient == nil {
		return nil
	}
	return i.mongoClient.Database(i.mongoDatabase)
}

// Postgres は接続プールを返す（設定されていない場合は nil）。
func (i *Infra) Postgres() *pgxpool.Pool {
	if i == nil {
		return nil
	}
	return i.pgPool
}

// Close は保持しているリソースを順次クローズする。
func (i *Infra) Close() error {
	if i == nil {
		return nil
	}

	var retErr error
	if i.firestoreClient != nil {
		retErr = mergeCloseError(retErr, "firestore", i.firestoreClient.Close)
	}
	if i.mongoClient != nil {
		retErr = mergeCloseError(retErr, "mongo", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()
			return i.mongoClient.Disconnect(ctx)
		})
	}
	if i.pgPool != nil {
		retErr = mergeCloseError(retErr, "postgres", func() error {
			i.pgPool.Close()
			return nil
		})
	}
	return retErr
}

func newFirestoreClient(ctx context.Context, cfg config.FirestoreConfig) (*firestore.Client, error) {
	opts := []option.ClientOption{}

	// エミュレータ利用時は認証不要なので Credentials は読み込まない。
	if cfg.CredentialsFile != "" && cfg.EmulatorHost == "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firestore client: %w", err)
	}
	return client, nil
}

/**
 * MongoDB に接続し、疎通を確認したクライアントを返す。
 * debug が true のときは発行したコマンドをログに出す。
 */
func newMongoClient(ctx context.Context, cfg config.MongoConfig, debug bool) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(connectTimeout)
	if debug {
		opts.SetMonitor(mongoCommandLogger())
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func mongoCommandLogger() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			log.Printf("mongo: %s.%s %s", e.DatabaseName, e.CommandName, e.Command)
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			log.Printf("mongo: %s failed in %s: %s", e.CommandName, e.Duration, e.Failure)
		},
	}
}

func newPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, config.ErrDatabaseURLNotSet
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

func mergeCloseError(current error, label string, fn func() error) error {
	if fn == nil {
		return current
	}
	if err := fn(); err != nil {
		log.Printf("%s close error: %v", label, err)
		if current == nil {
			return err
		}
		return errors.Join(current, err)
	}
	return current
}
