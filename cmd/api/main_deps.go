package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"postsapi/internal/app"
	"postsapi/internal/config"
)

// main.go で使用する依存の差し替えポイントを集約したファイル

type configLoader func() (*config.Config, error)

type containerFactory func(ctx context.Context, cfg *config.Config) (*app.Container, error)

type serverFactory func(cfg *config.Config, handler http.Handler) serverRunner

type serverRunner interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type containerCloser func(container *app.Container) error

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

var (
	loadConfig configLoader = func() (*config.Config, error) {
		config.LoadDotEnv()
		return config.Load()
	}
	newContainer containerFactory = app.NewContainer
	newServer    serverFactory    = func(cfg *config.Config, handler http.Handler) serverRunner {
		return &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		}
	}
	closeContainer containerCloser = func(container *app.Container) error {
		return container.Close()
	}
	runFunc = run
	fatalf  = log.Fatalf
)
