package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventhub/utils"
)

func newCachedServer(t *testing.T) (*gin.Engine, *redis.Client, *miniredis.Miniredis, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	s := gin.New()
	s.Use(ResponseCache(rdb, 30*time.Second))
	s.GET("/events", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	s.GET("/events/:id", func(c *gin.Context) {
		calls++
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	s.GET("/dashboard/registered", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{})
	})
	return s, rdb, mr, &calls
}

func get(s *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestResponseCache_MissThenHit(t *testing.T) {
	s, _, _, calls := newCachedServer(t)

	if w := get(s, "/events"); w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("want MISS, got %q", w.Header().Get("X-Cache"))
	}
	w := get(s, "/events")
	if w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("want HIT, got %q", w.Header().Get("X-Cache"))
	}
	if *calls != 1 {
		t.Fatalf("handler should run once, ran %d times", *calls)
	}
	if w.Body.String() != `{"calls":1}` {
		t.Fatalf("cached body mismatch: %s", w.Body.String())
	}
}

func TestResponseCache_QueryStringsAreSeparateEntries(t *testing.T) {
	s, _, _, calls := newCachedServer(t)

	get(s, "/events?category=Tech")
	get(s, "/events?category=Music")
	if w := get(s, "/events?category=Tech"); w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("want HIT, got %q", w.Header().Get("X-Cache"))
	}
	if *calls != 2 {
		t.Fatalf("want 2 handler calls, got %d", *calls)
	}
}

func TestResponseCache_ItemKeyIsPurgedByInvalidator(t *testing.T) {
	s, rdb, mr, calls := newCachedServer(t)

	get(s, "/events/e1")
	if !mr.Exists(utils.CacheEventsItemPrefix + "e1") {
		t.Fatalf("item key not stored, keys=%v", mr.Keys())
	}

	utils.NewCacheInvalidator(rdb).PurgeEvent(context.Background(), "e1")
	if w := get(s, "/events/e1"); w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("want MISS after purge, got %q", w.Header().Get("X-Cache"))
	}
	if *calls != 2 {
		t.Fatalf("want 2 handler calls, got %d", *calls)
	}
}

func TestResponseCache_SkipsErrorsAndPrivateRoutes(t *testing.T) {
	s, _, mr, _ := newCachedServer(t)

	get(s, "/events/missing")
	if w := get(s, "/dashboard/registered"); w.Header().Get("X-Cache") != "" {
		t.Fatalf("dashboard must not be cached, X-Cache=%q", w.Header().Get("X-Cache"))
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("nothing should be cached, got %v", keys)
	}
}

func TestCacheInvalidator_Purge(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := utils.NewCacheInvalidator(rdb)

	ctx := context.Background()
	_ = rdb.Set(ctx, utils.CacheEventsListPrefix+"abc", "x", 0).Err()
	_ = rdb.Set(ctx, utils.CacheEventsListPrefix+"def", "x", 0).Err()
	_ = rdb.Set(ctx, utils.CacheEventsItemPrefix+"e1", "x", 0).Err()
	_ = rdb.Set(ctx, utils.CacheEventsItemPrefix+"e2", "x", 0).Err()

	inv.PurgeEvent(ctx, "e1")

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != utils.CacheEventsItemPrefix+"e2" {
		t.Fatalf("only the untouched item should remain, got %v", keys)
	}
}

func TestResponseCache_HitDoesNotDuplicateCORSHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := gin.New()
	s.Use(CORS([]string{"http://localhost:5173"}))
	s.Use(ResponseCache(rdb, 30*time.Second))
	s.GET("/events", func(c *gin.Context) { c.JSON(http.StatusOK, []string{}) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		s.ServeHTTP(w, req)
		if got := w.Header().Values("Access-Control-Allow-Origin"); len(got) != 1 {
			t.Fatalf("request %d: want one allow-origin header, got %v", i+1, got)
		}
	}
}
