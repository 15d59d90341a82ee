package handler

import (
	"io"

	"github.com/gin-gonic/gin"
)

// RouterConfig はルーター全体に掛けるミドルウェアの設定。
type RouterConfig struct {
	// LogFormat は LogFormatDev / LogFormatCombined。空ならアクセスログを出さない。
	LogFormat string
	LogOutput io.Writer
	// ExposeStack はエラー応答に stack を含めるか（development のみ）。
	ExposeStack bool
}

// NewRouter は HTTP ハンドラーを紐づけた gin.Engine を返す。
func NewRouter(postHandler *PostHandler, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	if logger := requestLogger(cfg.LogFormat, cfg.LogOutput); logger != nil {
		router.Use(logger)
	}
	// Recovery より外側に置き、パニックも同じ形式で返す
	router.Use(ErrorHandler(cfg.ExposeStack))
	router.Use(gin.CustomRecovery(recoverToError))

	router.GET("/status", Status)

	posts := router.Group("/posts")
	posts.GET("", postHandler.ListPosts)
	posts.POST("", postHandler.CreatePost)

	// ID 指定のルートは LoadPost で投稿を解決してから処理する
	post := posts.Group("/:id", postHandler.LoadPost)
	post.GET("", postHandler.GetPost)
	post.PUT("", postHandler.ReplacePost)
	post.PATCH("", postHandler.UpdatePost)
	post.DELETE("", postHandler.DeletePost)

	router.NoRoute(NotFound)

	return router
}
