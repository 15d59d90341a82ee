package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var loadDotEnvOnce sync.Once

// LoadDotEnv は .env が存在すれば 1 度だけ読み込む。既に設定済みの環境変数は上書きしない。
func LoadDotEnv() {
	loadDotEnvOnce.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		if err := godotenv.Load(); err != nil {
			log.Printf("dotenv: failed to load .env: %v", err)
		}
	})
}

// 前後の空白を除いた環境変数の値。
func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// カンマ区切りの値を分割する。空要素は捨てる。
func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
