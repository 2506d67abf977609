package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheMiddleware serves public post pages (/posts/:id) from the rendered
// HTML cache and captures cache misses on the way out.
func CacheMiddleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		postID, ok := postIDFromPath(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}

		if cached, found := ReadCache(postID, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == "text/html; charset=utf-8" {
			WriteCache(postID, writer.body.String())
		}
	}
}

// postIDFromPath extracts the post id from a /posts/:id path.
func postIDFromPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/posts/")
	if !ok {
		return "", false
	}
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
