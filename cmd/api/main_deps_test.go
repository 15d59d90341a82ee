package main

import (
	"net/http"
	"testing"

	"postsapi/internal/app"
	"postsapi/internal/config"
)

/**
 * デフォルトの依存生成とクローズが動作することを確認する。
 */
func TestMainDeps_DefaultDepsAreCallable(t *testing.T) {
	cfg := &config.Config{Port: 4000}
	server := newServer(cfg, http.NotFoundHandler())
	httpServer, ok := server.(*http.Server)
	if !ok {
		t.Fatalf("*http.Server を想定しましたが %T でした", server)
	}
	if httpServer.Addr != ":4000" {
		t.Fatalf("待ち受けアドレスが想定外です: %s", httpServer.Addr)
	}
	if httpServer.ReadTimeout != readTimeout || httpServer.WriteTimeout != writeTimeout || httpServer.IdleTimeout != idleTimeout {
		t.Fatalf("タイムアウトが設定されていません: %+v", httpServer)
	}

	if err := closeContainer(&app.Container{}); err != nil {
		t.Fatalf("container の close に失敗しました: %v", err)
	}
}

/**
 * 環境変数から設定を読み込めることを確認する。
 */
func TestMainDeps_LoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("エラーなしを想定しましたが取得しました: %v", err)
	}
	if cfg.Profile != config.ProfileTest || cfg.Store != config.StoreMemory {
		t.Fatalf("設定が想定外です: %+v", cfg)
	}
}
