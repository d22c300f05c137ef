package middlewares

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventhub/utils"
)

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

// sha1Hex keeps list keys short whatever the query string is.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CacheKeyFrom returns the Redis key for a cacheable request and its kind
// ("list" or "item"). Only the public event reads are cacheable: everything
// else is per-caller or a write.
func CacheKeyFrom(c *gin.Context) (string, string) {
	if c.Request.Method != http.MethodGet {
		return "", ""
	}

	switch c.FullPath() {
	case "/events/:id":
		return utils.CacheEventsItemPrefix + c.Param("id"), "item"
	case "/events":
		return utils.CacheEventsListPrefix + sha1Hex(c.Request.URL.Query().Encode()), "list"
	default:
		return "", ""
	}
}

// ResponseCache serves cached 2xx responses for event reads and stores misses
// for ttl. Writes purge through utils.CacheInvalidator.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, _ := CacheKeyFrom(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				return
			}
		} else if err != nil && err != redis.Nil {
			slog.Warn("response cache read failed", "key", key, "error", err)
		}

		buf := &bytes.Buffer{}
		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: buf}
		c.Writer = bw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		if bw.Status() >= 200 && bw.Status() < 300 {
			header := c.Writer.Header().Clone()
			header.Del("X-Cache")
			// CORS headers are set per request upstream
			header.Del("Access-Control-Allow-Origin")
			header.Del("Vary")
			item := cachedBody{
				Status: bw.Status(),
				Header: header,
				Body:   buf.Bytes(),
			}

			var o bytes.Buffer
			if err := gob.NewEncoder(&o).Encode(item); err == nil {
				if err := rdb.Set(ctx, key, o.Bytes(), ttl).Err(); err != nil {
					slog.Warn("response cache write failed", "key", key, "error", err)
				}
			}
		}
	}
}

// bufferedWriter copies the response body while writing it to the client.
type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}
