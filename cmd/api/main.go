package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postsapi/internal/app"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runFunc(ctx); err != nil {
		fatalf("API起動失敗: %v", err)
	}
}

/**
 * 設定と依存を組み立ててサーバーを起動し、ctx が終わるまで待つ。
 */
func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("設定読み込み失敗: %w", err)
	}
	gin.SetMode(app.GinMode(cfg.Profile))

	container, err := newContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("依存初期化失敗: %w", err)
	}
	defer func() {
		if err := closeContainer(container); err != nil {
			log.Printf("依存終了失敗: %v", err)
		}
	}()

	server := newServer(cfg, app.NewHTTPHandler(cfg, container.PostHandler))
	log.Printf("listening on %s (profile=%s, store=%s)", cfg.Addr(), cfg.Profile, cfg.Store)
	return serve(ctx, server)
}

/**
 * サーバーを起動し、ctx の終了で猶予付きのシャットダウンを行う。
 */
func serve(ctx context.Context, server serverRunner) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("サーバー起動失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウン失敗: %w", err)
	}
	log.Printf("server stopped")
	return nil
}
