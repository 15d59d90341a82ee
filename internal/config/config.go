package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile は APP_ENV で選ぶ実行環境。
type Profile string

const (
	ProfileDevelopment Profile = "development"
	ProfileProduction  Profile = "production"
	ProfileTest        Profile = "test"
)

// LogFormat はアクセスログの形式。
type LogFormat string

const (
	LogFormatDev      LogFormat = "dev"
	LogFormatCombined LogFormat = "combined"
)

const (
	envAppEnv      = "APP_ENV"
	envPort        = "PORT"
	envLogFormat   = "LOG_FORMAT"
	envCORSOrigins = "CORS_ALLOWED_ORIGINS"
)

// profileDefaults はプロファイルごとの既定値。
type profileDefaults struct {
	port      int
	logFormat LogFormat
	store     StoreBackend
}

var defaultsByProfile = map[Profile]profileDefaults{
	ProfileDevelopment: {port: 4000, logFormat: LogFormatDev, store: StoreMemory},
	ProfileProduction:  {port: 3000, logFormat: LogFormatCombined, store: StoreMongo},
	ProfileTest:        {port: 3000, logFormat: LogFormatDev, store: StoreMemory},
}

/**
 * API サーバー全体の設定
 * Profile: 実行環境（development / production / test）
 * Port: 待ち受けポート
 * LogFormat: アクセスログ形式
 * Store: 投稿の保存先
 */
type Config struct {
	Profile            Profile
	Port               int
	LogFormat          LogFormat
	Store              StoreBackend
	Mongo              MongoConfig
	Postgres           PostgresConfig
	Firestore          FirestoreConfig
	CORSAllowedOrigins []string
}

// Addr は http.Server に渡す待ち受けアドレス。
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsDevelopment は詳細なエラーやデバッグログを出してよい環境かどうか。
func (c *Config) IsDevelopment() bool {
	return c.Profile == ProfileDevelopment
}

/**
 * 環境変数からプロファイルを選び、個別の上書きを反映した設定を返す。
 * 呼び出し前に LoadDotEnv を済ませておくこと。
 */
func Load() (*Config, error) {
	profile, err := parseProfile(getEnv(envAppEnv))
	if err != nil {
		return nil, err
	}
	defaults := defaultsByProfile[profile]

	cfg := &Config{
		Profile:            profile,
		Port:               defaults.port,
		LogFormat:          defaults.logFormat,
		Store:              defaults.store,
		CORSAllowedOrigins: []string{"*"},
	}

	if raw := getEnv(envPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("config: %s must be a port number, got %q", envPort, raw)
		}
		cfg.Port = port
	}

	if raw := getEnv(envLogFormat); raw != "" {
		format := LogFormat(strings.ToLower(raw))
		if format != LogFormatDev && format != LogFormatCombined {
			return nil, fmt.Errorf("config: unknown %s %q", envLogFormat, raw)
		}
		cfg.LogFormat = format
	}

	if origins := splitCSV(getEnv(envCORSOrigins)); len(origins) > 0 {
		cfg.CORSAllowedOrigins = origins
	}

	if raw := getEnv(envStoreBackend); raw != "" {
		store, err := parseStoreBackend(raw)
		if err != nil {
			return nil, err
		}
		cfg.Store = store
	}

	if err := cfg.loadStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseProfile(raw string) (Profile, error) {
	if raw == "" {
		return ProfileDevelopment, nil
	}
	profile := Profile(strings.ToLower(raw))
	if _, ok := defaultsByProfile[profile]; !ok {
		return "", fmt.Errorf("config: unknown %s %q", envAppEnv, raw)
	}
	return profile, nil
}
