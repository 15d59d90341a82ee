package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	router := newTestRouter(t)

	t.Run("なければ採番する", func(t *testing.T) {
		rec := performRequest(router, http.MethodGet, "/status", "")
		assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
	})

	t.Run("受け取った ID を返す", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set(HeaderRequestID, "req-123")
		router.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
	})
}

func TestCombinedLogFormatter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/posts?page=2", nil)
	req.Header.Set("Referer", "http://example.com/")
	req.Header.Set("User-Agent", "curl/8.0")

	line := combinedLogFormatter(gin.LogFormatterParams{
		Request:    req,
		TimeStamp:  time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		StatusCode: http.StatusOK,
		ClientIP:   "192.0.2.1",
		Method:     http.MethodGet,
		Path:       "/posts?page=2",
		BodySize:   42,
		Keys:       map[string]any{requestIDKey: "req-1"},
	})

	assert.Equal(t, `192.0.2.1 - - [04/Mar/2024:05:06:07 +0000] "GET /posts?page=2 HTTP/1.1" 200 42 "http://example.com/" "curl/8.0" req-1`+"\n", line)
}

func TestRequestLogger(t *testing.T) {
	assert.Nil(t, requestLogger("", nil))

	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestID(), requestLogger(LogFormatCombined, &buf))
	router.GET("/status", Status)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(HeaderRequestID, "req-9")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	line := buf.String()
	assert.True(t, strings.HasSuffix(line, " req-9\n"), line)
	assert.Contains(t, line, `"GET /status HTTP/1.1" 200 2`)
}

func TestWithCORS(t *testing.T) {
	handler := WithCORS(newTestRouter(t), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	restricted := WithCORS(newTestRouter(t), []string{"https://allowed.example"})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://other.example")
	restricted.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
