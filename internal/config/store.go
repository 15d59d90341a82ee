package config

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// StoreBackend は投稿の保存先。
type StoreBackend string

const (
	StoreMemory    StoreBackend = "memory"
	StoreMongo     StoreBackend = "mongo"
	StoreFirestore StoreBackend = "firestore"
	StorePostgres  StoreBackend = "postgres"
)

const (
	DefaultMongoURI      = "mongodb://localhost/posts"
	DefaultMongoDatabase = "posts"

	envStoreBackend   = "STORE_BACKEND"
	envMongoURI       = "MONGO_URI"
	envMongoDatabase  = "MONGO_DATABASE"
	envDatabaseURL    = "DATABASE_URL"
	envGCPProject     = "GOOGLE_CLOUD_PROJECT"
	envGCPCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	envFirestoreHost  = "FIRESTORE_EMULATOR_HOST"
)

var (
	ErrDatabaseURLNotSet       = errors.New("config: DATABASE_URL is not set")
	ErrFirestoreProjectIDBlank = errors.New("config: GOOGLE_CLOUD_PROJECT is not set")
)

// MongoConfig は MongoDB 接続設定。
type MongoConfig struct {
	URI      string
	Database string
}

// PostgresConfig は PostgreSQL 接続設定。
type PostgresConfig struct {
	DatabaseURL string
}

// FirestoreConfig は Firestore クライアント初期化に必要な設定を保持する。
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
	EmulatorHost    string
}

func parseStoreBackend(raw string) (StoreBackend, error) {
	backend := StoreBackend(strings.ToLower(strings.TrimSpace(raw)))
	switch backend {
	case StoreMemory, StoreMongo, StoreFirestore, StorePostgres:
		return backend, nil
	default:
		return "", fmt.Errorf("config: unknown %s %q", envStoreBackend, raw)
	}
}

// loadStore は選ばれた保存先の接続設定だけを読み込み、検証する。
func (c *Config) loadStore() error {
	switch c.Store {
	case StoreMongo:
		mongoCfg, err := loadMongoConfig()
		if err != nil {
			return err
		}
		c.Mongo = *mongoCfg
	case StorePostgres:
		url := getEnv(envDatabaseURL)
		if url == "" {
			return ErrDatabaseURLNotSet
		}
		c.Postgres = PostgresConfig{DatabaseURL: url}
	case StoreFirestore:
		projectID := getEnv(envGCPProject)
		if projectID == "" {
			return ErrFirestoreProjectIDBlank
		}
		c.Firestore = FirestoreConfig{
			ProjectID:       projectID,
			CredentialsFile: getEnv(envGCPCredentials),
			EmulatorHost:    getEnv(envFirestoreHost),
		}
	}
	return nil
}

/**
 * MONGO_URI を検証し、データベース名を決める。
 * MONGO_DATABASE > URI のパス > 既定値 の順で採用する。
 */
func loadMongoConfig() (*MongoConfig, error) {
	uri := getEnv(envMongoURI)
	if uri == "" {
		uri = DefaultMongoURI
	}

	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", envMongoURI, err)
	}

	database := getEnv(envMongoDatabase)
	if database == "" {
		database = cs.Database
	}
	if database == "" {
		database = DefaultMongoDatabase
	}

	return &MongoConfig{URI: uri, Database: database}, nil
}
