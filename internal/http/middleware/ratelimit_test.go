package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_AllowsWithinBurstThen429(t *testing.T) {
	rl := NewRateLimiter(0, 2, KeyByUserOrIP()) // no refill, burst 2
	r := gin.New()
	r.GET("/books", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v; want [200 200 429]", codes)
	}
}

func TestRateLimiter_SeparateBucketsPerUser(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r := gin.New()
	r.GET("/books", func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-User-ID"))
		c.Next()
	}, rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(user string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("X-User-ID", user)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if send("alice") != http.StatusOK {
		t.Fatalf("alice first request should pass")
	}
	if send("alice") != http.StatusTooManyRequests {
		t.Fatalf("alice second request should be limited")
	}
	// bob has his own bucket.
	if send("bob") != http.StatusOK {
		t.Fatalf("bob should not share alice's bucket")
	}
}

func TestRateLimiter_ReplayBypassesLimit(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r := gin.New()
	r.GET("/books", func(c *gin.Context) {
		if c.GetHeader("X-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}, rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	// Drain the bucket.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))

	// A marked replay sails through anyway.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("X-Replay", "1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay status = %d; want 200", w.Code)
	}
}

func TestNewRateLimiter_CoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d; want coerced to 1", rl.burst)
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	fn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := fn(c); got[:3] != "ip:" {
		t.Fatalf("anonymous key = %q; want ip-prefixed", got)
	}

	c.Set("userID", "u1")
	if got := fn(c); got != "user:u1" {
		t.Fatalf("user key = %q; want user:u1", got)
	}
}
