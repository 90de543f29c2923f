package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/register", nil)
	req.RemoteAddr = addr
	return req
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	steps := []struct {
		at        time.Duration
		ok        bool
		remaining int
	}{
		{0, true, 1},
		{10 * time.Second, true, 0},
		{20 * time.Second, false, 0},
		// Half of the previous window still counts: 2*0.5 = 1 used.
		{90 * time.Second, true, 0},
		{90 * time.Second, false, 0},
		// Two idle windows forget everything.
		{4 * time.Minute, true, 1},
	}
	for i, s := range steps {
		remaining, reset, ok := l.take("till-1", t0.Add(s.at))
		assert.Equal(t, s.ok, ok, "step %d", i)
		assert.Equal(t, s.remaining, remaining, "step %d", i)
		assert.True(t, reset.After(t0.Add(s.at)), "step %d", i)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.take("a", t0)
	l.take("b", t0.Add(90*time.Second))

	l.sweep(t0.Add(2 * time.Minute))
	assert.NotContains(t, l.counters, "a")
	assert.Contains(t, l.counters, "b")
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:9999"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var (
		code int
		msg  string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "code":
			code, err = d.Int()
		case "message":
			msg, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", msg)

	// Another client is unaffected.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.2:9999"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Skip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip: func(r *http.Request) bool {
			return r.URL.Path == "/readyz"
		},
	})(okHandler())

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Terminal")
		},
	})(okHandler())

	send := func(terminal string) int {
		req := requestFrom("10.0.0.1:1")
		req.Header.Set("X-Terminal", terminal)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("counter"))
	assert.Equal(t, http.StatusTooManyRequests, send("counter"))
	assert.Equal(t, http.StatusOK, send("kitchen"))
}

func TestRateLimitWithCleanup_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := RateLimitWithCleanup(ctx, RateLimitConfig{Max: 1, Window: 10 * time.Millisecond})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, w.Code)
	cancel()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "RemoteAddr", remote: "192.168.1.10:5000", want: "192.168.1.10"},
		{name: "RemoteAddrWithoutPort", remote: "192.168.1.10", want: "192.168.1.10"},
		{
			name:    "ForwardedFirstHop",
			headers: map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"},
			remote:  "10.0.0.1:80",
			want:    "203.0.113.5",
		},
		{
			name:    "RealIP",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			remote:  "10.0.0.1:80",
			want:    "198.51.100.7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom(tt.remote)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
