package ginserver

import (
	"bytes"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"monteur/internal/domain/shared/daterange"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheKey derives the cache entry for a request.
type CacheKey func(c *gin.Context) string

func RequestKey(c *gin.Context) string {
	return c.Request.URL.RequestURI()
}

// DayKey scopes entries to the current calendar day. Quotes depend on today
// through the early booking discount and must not survive midnight.
func DayKey(today func() time.Time) CacheKey {
	return func(c *gin.Context) string {
		return daterange.Format(today()) + " " + RequestKey(c)
	}
}

// Cache serves repeated GET requests from memory. Only 2xx responses are kept.
// A nil key falls back to RequestKey.
func Cache(store *cache.Cache, ttl time.Duration, key CacheKey) gin.HandlerFunc {
	if key == nil {
		key = RequestKey
	}
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		entry := key(c)
		if hit, found := store.Get(entry); found {
			cached := hit.(cachedResponse)
			for k, v := range cached.headers {
				if k == "X-Request-Id" {
					continue
				}
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		w := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() >= 200 && w.Status() < 300 {
			store.Set(entry, cachedResponse{
				status:  w.Status(),
				headers: w.Header().Clone(),
				body:    append([]byte(nil), w.body.Bytes()...),
			}, ttl)
		}
	}
}
