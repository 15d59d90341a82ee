package app

import (
	"net/http"

	"postsapi/internal/adapter/http/handler"
	"postsapi/internal/config"

	"github.com/gin-gonic/gin"
)

// GinMode はプロファイルに対応する gin のモード。
func GinMode(profile config.Profile) string {
	switch profile {
	case config.ProfileDevelopment:
		return gin.DebugMode
	case config.ProfileTest:
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

/**
 * ルーターに設定を反映し、CORS で包んだ http.Handler を返す。
 */
func NewHTTPHandler(cfg *config.Config, postHandler *handler.PostHandler) http.Handler {
	router := handler.NewRouter(postHandler, handler.RouterConfig{
		LogFormat:   string(cfg.LogFormat),
		ExposeStack: cfg.IsDevelopment(),
	})
	return handler.WithCORS(router, cfg.CORSAllowedOrigins)
}
