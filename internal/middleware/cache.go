package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/yatube/internal/cache"
	"github.com/d60-Lab/yatube/internal/metrics"
	"github.com/d60-Lab/yatube/pkg/logger"
)

const (
	CacheHeader = "X-Cache"

	pageKeyPrefix = "index:"
)

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// PageKey is the cache key for a request URI such as "/" or "/?page=2".
func PageKey(requestURI string) string { return pageKeyPrefix + requestURI }

// CachePage serves identical bytes for the same URI until ttl expires.
// Entries are never invalidated by writes; only 200 responses are stored.
func CachePage(store cache.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := PageKey(c.Request.URL.RequestURI())

		raw, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			metrics.PageCacheResults.WithLabelValues("error").Inc()
			logger.Warn("page cache get failed", zap.String("key", key), zap.Error(err))
		case ok:
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				metrics.PageCacheResults.WithLabelValues("hit").Inc()
				c.Header(CacheHeader, "HIT")
				c.Data(page.Status, page.ContentType, page.Body)
				c.Abort()
				return
			}
			logger.Warn("page cache entry corrupt", zap.String("key", key))
		default:
			metrics.PageCacheResults.WithLabelValues("miss").Inc()
		}

		c.Header(CacheHeader, "MISS")
		w := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() != http.StatusOK || c.IsAborted() {
			return
		}
		encoded, err := json.Marshal(cachedPage{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
		})
		if err != nil {
			return
		}
		if err := store.Set(ctx, key, encoded, ttl); err != nil {
			logger.Warn("page cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
}
