package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID はリクエスト ID の受け渡しに使うヘッダー。
	HeaderRequestID = "X-Request-ID"
	requestIDKey    = "request_id"

	LogFormatDev      = "dev"
	LogFormatCombined = "combined"

	combinedTimeLayout = "02/Jan/2006:15:04:05 -0700"
)

// RequestID は受け取った X-Request-ID を引き継ぎ、なければ採番する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

/**
 * プロファイルに応じたアクセスログを返す。
 * dev: gin 標準の色付きログ
 * combined: Apache combined 形式 + リクエスト ID
 * それ以外はログを出さない（nil）
 */
func requestLogger(format string, out io.Writer) gin.HandlerFunc {
	if out == nil {
		out = gin.DefaultWriter
	}
	switch format {
	case LogFormatDev:
		return gin.LoggerWithConfig(gin.LoggerConfig{Output: out})
	case LogFormatCombined:
		return gin.LoggerWithConfig(gin.LoggerConfig{Output: out, Formatter: combinedLogFormatter})
	default:
		return nil
	}
}

func combinedLogFormatter(param gin.LogFormatterParams) string {
	referer, userAgent := "-", "-"
	proto := "HTTP/1.1"
	if param.Request != nil {
		if v := param.Request.Referer(); v != "" {
			referer = v
		}
		if v := param.Request.UserAgent(); v != "" {
			userAgent = v
		}
		proto = param.Request.Proto
	}
	bodySize := param.BodySize
	if bodySize < 0 {
		bodySize = 0
	}
	requestID, _ := param.Keys[requestIDKey].(string)
	if requestID == "" {
		requestID = "-"
	}

	return fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %d \"%s\" \"%s\" %s\n",
		param.ClientIP,
		param.TimeStamp.Format(combinedTimeLayout),
		param.Method,
		param.Path,
		proto,
		param.StatusCode,
		bodySize,
		referer,
		userAgent,
		requestID,
	)
}

// WithCORS は gin のエンジンを go-chi/cors で包む。origins が空ならすべて許可する。
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	}).Handler(h)
}
