package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	ok := func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]string{"status": "ok"}) }
	e.GET("/", ok)
	e.GET("/health", ok)
	e.GET("/api/catalog", ok)
	e.POST("/api/catalog", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]int{"item_id": 1})
	})
	e.POST("/api/catalog/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return c.JSON(http.StatusBadRequest, map[string]string{"status": "invalid data type provided"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
	})
	e.PUT("/api/catalog/:id", ok)
	return e
}

func serve(e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "curator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tkn.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthRequiresToken(t *testing.T) {
	e := newEcho(Auth("secret"))

	rec := serve(e, http.MethodGet, "/api/catalog", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"unauthorized"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/catalog", "", map[string]string{
		echo.HeaderAuthorization: "Bearer " + signedToken(t, "other"),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/api/catalog", "", map[string]string{
		echo.HeaderAuthorization: "Bearer " + signedToken(t, "secret"),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthSkipsHealthAndOptions(t *testing.T) {
	e := newEcho(Auth("secret"))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health", "", nil).Code)
	assert.NotEqual(t, http.StatusUnauthorized, serve(e, http.MethodOptions, "/api/catalog", "", nil).Code)
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	e := newEcho(Auth(""))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/catalog", "", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	e := newEcho(CORS([]string{"https://gallery.example"}), Auth("secret"))

	rec := serve(e, http.MethodOptions, "/api/catalog", "", map[string]string{
		echo.HeaderOrigin:                     "https://gallery.example",
		echo.HeaderAccessControlRequestMethod: http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://gallery.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodDelete)
}

func TestMemoryRateLimit(t *testing.T) {
	e := newEcho(RateLimit(NewMemoryRateLimiterStore(0.001, 2)))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/catalog", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/catalog", "", nil).Code)

	rec := serve(e, http.MethodGet, "/api/catalog", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"status":"rate limit exceeded"}`, rec.Body.String())
}

func TestRedisRateLimiterStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisRateLimiterStore(rdb, 3, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = store.Allow("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "clients are counted separately")

	now = now.Add(time.Minute)
	allowed, err = store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "a new window resets the count")
}

func TestRedisRateLimiterStoreFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	allowed, err := NewRedisRateLimiterStore(rdb, 1, time.Minute).Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

type publishCall struct {
	key  string
	body string
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{key, string(body)})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func TestNotifierPublishesSuccessfulPosts(t *testing.T) {
	p := &fakePublisher{}
	n := NewNotifier(p, time.Second)
	e := newEcho(n.Middleware())

	rec := serve(e, http.MethodPost, "/api/catalog", `{"artist":"A"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = serve(e, http.MethodPost, "/api/catalog/4", `{"title":"T"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	n.Wait()

	assert.ElementsMatch(t, []publishCall{
		{"catalog.created", `{"artist":"A"}`},
		{"catalog.updated", `{"title":"T"}`},
	}, p.calls)
}

func TestNotifierSkipsOtherRequests(t *testing.T) {
	p := &fakePublisher{}
	n := NewNotifier(p, time.Second)
	e := newEcho(n.Middleware())

	serve(e, http.MethodGet, "/api/catalog", "", nil)
	serve(e, http.MethodPut, "/api/catalog/4", `{"title":"T"}`, nil)
	rec := serve(e, http.MethodPost, "/api/catalog/0", `{"width":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	n.Wait()

	assert.Empty(t, p.calls)
}

func TestNotifierErrorDoesNotAffectResponse(t *testing.T) {
	p := &fakePublisher{err: errors.New("topic gone")}
	n := NewNotifier(p, time.Second)
	e := newEcho(n.Middleware())

	rec := serve(e, http.MethodPost, "/api/catalog", `{"artist":"A"}`, nil)
	n.Wait()

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"item_id":1}`, rec.Body.String())
	assert.Len(t, p.calls, 1)
}

func TestBodyLimitRejectsLargeBodies(t *testing.T) {
	p := &fakePublisher{}
	n := NewNotifier(p, time.Second)
	e := newEcho(BodyLimit("1K"), n.Middleware())

	large := `{"description":"` + strings.Repeat("x", 2048) + `"}`
	rec := serve(e, http.MethodPost, "/api/catalog", large, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = serve(e, http.MethodPost, "/api/catalog", `{"artist":"A"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	n.Wait()

	assert.Equal(t, []publishCall{{"catalog.created", `{"artist":"A"}`}}, p.calls)
}
